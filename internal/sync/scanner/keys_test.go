package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

func TestRelativeDir(t *testing.T) {
	tests := []struct {
		name string
		base string
		dir  string
		want []string
	}{
		{"posix", "/work/proj", "/work/proj/templates/nested", []string{"templates", "nested"}},
		{"trailing separators", "/work/proj/", "/work/proj/templates/", []string{"templates"}},
		{"base itself", "/work/proj", "/work/proj", []string{}},
		{"relative dot base", ".", "./templates", []string{"templates"}},
		{"empty base", "", "templates/a", []string{"templates", "a"}},
		{"windows", `C:\work\proj`, `C:\work\proj\templates\nested`, []string{"templates", "nested"}},
		{"mixed separators", `C:\work\proj`, `C:/work/proj/templates`, []string{"templates"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativeDir(tt.base, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelativeDir_NotUnderBase(t *testing.T) {
	tests := []struct {
		name string
		base string
		dir  string
	}{
		{"name prefix is not a parent", "/work/proj", "/work/project/templates"},
		{"shorter than base", "/work/proj", "/work"},
		{"sibling", "/work/proj", "/work/other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RelativeDir(tt.base, tt.dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, deperrors.ErrInvalidInput)
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		release string
		base    string
		dir     string
		file    string
		wantKey string
	}{
		{"posix", "abc123", "/work/proj", "/work/proj/templates", "app.yml", "abc123/templates/app.yml"},
		{"nested", "v1.2", "/work/proj", "/work/proj/lambda/fn/src", "main.py", "v1.2/lambda/fn/src/main.py"},
		{"windows", "abc123", `C:\work\proj`, `C:\work\proj\templates\nested`, "app.json", "abc123/templates/nested/app.json"},
		{"file at base", "null", "/work/proj", "/work/proj", "readme.txt", "null/readme.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := RelativeDir(tt.base, tt.dir)
			require.NoError(t, err)

			key := BuildKey(tt.release, dir, tt.file)
			assert.Equal(t, tt.wantKey, key)

			release, gotDir, name, err := ParseKey(key)
			require.NoError(t, err)
			assert.Equal(t, tt.release, release)
			assert.Equal(t, tt.file, name)
			if len(dir) == 0 {
				assert.Empty(t, gotDir)
			} else {
				assert.Equal(t, dir, gotDir)
			}
		})
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, key := range []string{"", "nokey", "rel//a.txt", "rel/a/"} {
		_, _, _, err := ParseKey(key)
		assert.Error(t, err, key)
	}
}

func TestNormalizeSyncDir(t *testing.T) {
	assert.Equal(t, []string{"templates"}, NormalizeSyncDir("./templates"))
	assert.Equal(t, []string{"templates", "nested"}, NormalizeSyncDir("templates/nested/"))
	assert.Equal(t, []string{"templates"}, NormalizeSyncDir("templates."))
	assert.Empty(t, NormalizeSyncDir("."))
}
