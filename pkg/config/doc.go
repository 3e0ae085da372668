/*
Package config holds the migration request and loads copier answers files.

	            +-------------+
	            |   Request   |
	            | (CLI flags) |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	| answers  | | answers  | | answers  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Turns command line input into a validated, immutable Request
- Loads template answer defaults from a data file
- Classifies bad input as usage errors

🔄 Flow:
1. cobra fills a Request from flags
2. Validate applies defaults and rejects invalid combinations
3. LoadAnswers picks a parser by file extension and decodes the answers

📝 Open question decided here:
--purge-reset only makes sense on master, where the purge commit exists. Any
other base branch is rejected as a usage error instead of being ignored.
*/
package config
