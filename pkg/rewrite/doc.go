/*
Package rewrite adapts migrated Salt code to its new home in the extension.

🔄 Import rules:

	import salt.modules.vault              -> import saltext.vault.modules.vault
	from salt.modules import cmdmod, vault -> from saltext.vault.modules import vault
	                                          from salt.modules import cmdmod
	patch("salt.modules.vault.x")          -> patch("saltext.vault.modules.vault.x")
	from tests.support.mock import patch   -> from unittest.mock import patch

🔁 __utils__ calls:

	__utils__["vault.read_kv"](path)       -> saltext.vault.utils.vault.read_kv(path)

Calls into Salt core utils that rely on loader dunders cannot be rewritten
and are reported instead.

Files are parsed with tree-sitter and rewritten by syntax node, so comments
and docstrings stay as they are.
*/
package rewrite
