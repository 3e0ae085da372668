/*
Package operation runs a complete extension migration.

	+-------------+     +-------------+     +-------------+
	|    Salt     | --> |   Filter    | --> |  Scaffold   |
	|  checkout   |     |   history   |     |  + merge    |
	+-------------+     +-------------+     +------+------+
	                                               |
	+-------------+     +-------------+     +------+------+
	|   Summary   | <-- | pre-commit  | <-- |  Rewrite    |
	|             |     |             |     |  imports    |
	+-------------+     +-------------+     +-------------+

🎯 Purpose:
- Sequences the git, copier, python and rewrite steps
- Asks the operator before destructive actions unless running with --yes
- Reports what moved and what still needs manual work

🔄 Flow:
1. Prepare the Salt checkout and the extension directory
2. Select paths and build the rename plan
3. Filter the history on a temporary branch, optionally from before the purge
4. Generate the project and merge the filtered history into it
5. Create the virtualenv, rewrite imports and __utils__ calls
6. Run pre-commit and print the summary

Steps run strictly one after another. A failing step stops the run and
leaves the Salt checkout on the filter branch; the next run cleans it up.
*/
package operation
