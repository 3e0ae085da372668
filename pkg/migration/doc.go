/*
Package migration turns a set of selected Salt paths into a rename plan for
the extension layout.

	salt/modules/vault.py                   -> src/saltext/vault/modules/vault.py
	salt/cloud/clouds/ec2.py                -> src/saltext/ec2/clouds/ec2.py
	salt/client/ssh/wrapper/x.py            -> src/saltext/x/wrapper/x.py
	tests/pytests/unit/modules/test_x.py    -> tests/unit/modules/test_x.py
	tests/pytests/unit/cloud/clouds/test.py -> tests/unit/clouds/test.py
	tests/pytests/integration/ssh/test.py   -> tests/integration/wrapper/test.py
	tests/unit/cloud/clouds/test_x.py       -> tests/unit/clouds/test_x.py
	tests/support/pytest/x.py               -> tests/support/x.py
	doc/topics/x.rst                        -> docs/topics/x.rst

🎯 Collisions:
Two sources collide when they end up at the same destination, e.g. a
pytest-style test moved onto a legacy test that still exists. Collisions are
fatal unless suffixes are requested, in which case pytest-style modules get
_pytest and legacy ones get _old.
*/
package migration
