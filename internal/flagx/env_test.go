package flagx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FT_TEST_A=from-file\nFT_TEST_B=file-b\n"), 0o600))

	t.Setenv("FT_TEST_A", "from-env")
	t.Setenv("FT_TEST_B", "")
	require.NoError(t, os.Unsetenv("FT_TEST_B"))
	t.Cleanup(func() { _ = os.Unsetenv("FT_TEST_B") })

	require.NoError(t, LoadEnv(path))

	assert.Equal(t, "from-env", os.Getenv("FT_TEST_A"))
	assert.Equal(t, "file-b", os.Getenv("FT_TEST_B"))
}

func TestLoadEnv_MissingExplicitFile(t *testing.T) {
	require.Error(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadEnv_MissingDefaultFileIsFine(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, LoadEnv(""))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FT_STR", "value")
	t.Setenv("FT_DUR", "2m")
	t.Setenv("FT_BAD_DUR", "later")
	t.Setenv("FT_LIST", "a, b")
	t.Setenv("FT_INT", "12")

	s := "default"
	EnvString(&s, "FT_STR")
	assert.Equal(t, "value", s)
	EnvString(&s, "FT_MISSING")
	assert.Equal(t, "value", s)

	d := time.Second
	require.NoError(t, EnvDuration(&d, "FT_DUR"))
	assert.Equal(t, 2*time.Minute, d)
	require.Error(t, EnvDuration(&d, "FT_BAD_DUR"))
	assert.Equal(t, 2*time.Minute, d)

	var l []string
	EnvStrings(&l, "FT_LIST")
	assert.Equal(t, []string{"a", "b"}, l)

	n := 1
	require.NoError(t, EnvInt(&n, "FT_INT"))
	assert.Equal(t, 12, n)
}
