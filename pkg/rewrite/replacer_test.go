package rewrite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vaultRules = []Rule{
	{From: "salt.modules.vault", To: "saltext.vault.modules.vault", FileFilterGlob: pythonGlob},
	{From: "salt.utils.vault", To: "saltext.vault.utils.vault", FileFilterGlob: pythonGlob},
	{From: "salt.utils.vault.auth", To: "saltext.vault.utils.vault.auth", FileFilterGlob: pythonGlob},
	{From: "tests.support.mock", To: "unittest.mock", FileFilterGlob: testsGlob},
	{From: "tests.support.pytest.vault", To: "tests.support.vault", FileFilterGlob: testsGlob},
}

func TestImportReplacerReplace(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		content   string
		want      string
		wantCount int
	}{
		{
			name:      "plain_import",
			path:      "src/saltext/vault/states/vault.py",
			content:   "import salt.modules.vault\nimport salt.modules.vaultx\n",
			want:      "import saltext.vault.modules.vault\nimport salt.modules.vaultx\n",
			wantCount: 1,
		},
		{
			name:      "longest_name_wins",
			path:      "src/saltext/vault/modules/vault.py",
			content:   "import salt.utils.vault.auth as vauth\nimport salt.utils.vault\n",
			want:      "import saltext.vault.utils.vault.auth as vauth\nimport saltext.vault.utils.vault\n",
			wantCount: 2,
		},
		{
			name:      "attribute_and_string_targets",
			path:      "tests/unit/modules/test_vault.py",
			content:   "patch(\"salt.modules.vault.read\")\npatch.object(salt.modules.vault, \"x\")\nfoo.salt.modules.vault\n",
			want:      "patch(\"saltext.vault.modules.vault.read\")\npatch.object(saltext.vault.modules.vault, \"x\")\nfoo.salt.modules.vault\n",
			wantCount: 2,
		},
		{
			name:      "from_import_migrated",
			path:      "tests/unit/modules/test_vault.py",
			content:   "from salt.modules import vault\n",
			want:      "from saltext.vault.modules import vault\n",
			wantCount: 1,
		},
		{
			name:      "from_import_split",
			path:      "tests/unit/modules/test_vault.py",
			content:   "from salt.modules import cmdmod, vault as vault_mod  # noqa\n",
			want:      "from saltext.vault.modules import vault as vault_mod  # noqa\nfrom salt.modules import cmdmod\n",
			wantCount: 1,
		},
		{
			name: "from_import_parenthesized",
			path: "src/saltext/vault/modules/vault.py",
			content: "def read():\n" +
				"    from salt.utils import (\n" +
				"        files,\n" +
				"        vault,\n" +
				"    )\n",
			want: "def read():\n" +
				"    from saltext.vault.utils import vault\n" +
				"    from salt.utils import files\n",
			wantCount: 1,
		},
		{
			name: "from_import_keeps_name_comments",
			path: "tests/unit/modules/test_vault.py",
			content: "from salt.modules import (  # noqa\n" +
				"    cmdmod,  # pylint: disable=unused-import\n" +
				"    vault,\n" +
				")\n",
			want: "from saltext.vault.modules import vault  # noqa\n" +
				"from salt.modules import cmdmod  # pylint: disable=unused-import\n",
			wantCount: 1,
		},
		{
			name: "from_import_migrated_name_comment",
			path: "tests/unit/modules/test_vault.py",
			content: "from salt.modules import (\n" +
				"    cmdmod,\n" +
				"    vault,  # pylint: disable=unused-import\n" +
				")\n",
			want: "from saltext.vault.modules import vault  # pylint: disable=unused-import\n" +
				"from salt.modules import cmdmod\n",
			wantCount: 1,
		},
		{
			name:      "comments_untouched",
			path:      "src/saltext/vault/modules/vault.py",
			content:   "# see salt.modules.vault\nimport os\n",
			want:      "# see salt.modules.vault\nimport os\n",
			wantCount: 0,
		},
		{
			name:      "wildcard_import",
			path:      "src/saltext/vault/modules/vault.py",
			content:   "from salt.utils.vault import *\n",
			want:      "from saltext.vault.utils.vault import *\n",
			wantCount: 1,
		},
		{
			name:      "from_import_untouched",
			path:      "src/saltext/vault/modules/vault.py",
			content:   "from salt.modules import cmdmod, vaultx\n",
			want:      "from salt.modules import cmdmod, vaultx\n",
			wantCount: 0,
		},
		{
			name:      "package_from_import",
			path:      "src/saltext/vault/modules/vault.py",
			content:   "from salt.utils.vault import auth, helpers\n",
			want:      "from saltext.vault.utils.vault import auth\nfrom saltext.vault.utils.vault import helpers\n",
			wantCount: 2,
		},
		{
			name:      "tests_support_mock",
			path:      "tests/unit/modules/test_vault.py",
			content:   "from tests.support.mock import MagicMock, patch\nfrom tests.support import mock\n",
			want:      "from unittest.mock import MagicMock, patch\nfrom unittest import mock\n",
			wantCount: 2,
		},
		{
			name:      "tests_support_pytest",
			path:      "tests/conftest.py",
			content:   "from tests.support.pytest.vault import vault_container\nfrom tests.support.pytest import vault\n",
			want:      "from tests.support.vault import vault_container\nfrom tests.support import vault\n",
			wantCount: 2,
		},
		{
			name:      "support_rules_skip_sources",
			path:      "src/saltext/vault/modules/vault.py",
			content:   "from tests.support.mock import patch\n",
			want:      "from tests.support.mock import patch\n",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewImportReplacer()
			res, err := r.Replace(context.Background(), tt.path, []byte(tt.content), vaultRules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(res.ModifiedContent))
			assert.Equal(t, tt.wantCount, res.ReplacementCount)
			assert.Equal(t, tt.content != tt.want, res.WasModified)
			assert.Equal(t, tt.content, string(res.OriginalContent))
		})
	}
}

func TestImportReplacerValidateRules(t *testing.T) {
	r := NewImportReplacer()
	assert.NoError(t, r.ValidateRules(vaultRules))
	assert.Error(t, r.ValidateRules([]Rule{{To: "x"}}))
	assert.Error(t, r.ValidateRules([]Rule{{From: "x"}}))
	assert.Error(t, r.ValidateRules([]Rule{{From: "salt modules", To: "x"}}))
	assert.Error(t, r.ValidateRules([]Rule{{From: "a", To: "b", FileFilterGlob: "[a"}}))
}

func TestRuleSets(t *testing.T) {
	mods := ModuleRules(map[string]string{
		"salt.states.vault":  "saltext.vault.states.vault",
		"salt.modules.vault": "saltext.vault.modules.vault",
	})
	require.Len(t, mods, 2)
	assert.Equal(t, "salt.modules.vault", mods[0].From)
	assert.Equal(t, pythonGlob, mods[0].FileFilterGlob)

	support := SupportRules(map[string]string{"tests.support.pytest.vault": "tests.support.vault"})
	require.Len(t, support, 2)
	assert.Equal(t, Rule{From: "tests.support.mock", To: MockModule, FileFilterGlob: testsGlob}, support[0])
}

func TestDiff(t *testing.T) {
	got := Diff("a\nb\nc\n", "a\nB\nc\n")
	assert.Equal(t, "-b\n+B\n", got)
	assert.Equal(t, "", Diff("same\n", "same\n"))
}
