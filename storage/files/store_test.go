package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_SaveRemove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	url, err := store.Save(strings.NewReader("%PDF-1.4"), "Aljabar Bab 1.PDF", "materials")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/materials/"))
	assert.True(t, strings.HasSuffix(url, ".pdf")) // extension is lowercased

	rel := strings.TrimPrefix(url, "/media/")
	data, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Remove(url))
	_, err = os.Stat(filepath.Join(store.Root(), filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	assert.NoError(t, store.Remove(url))

	// path escapes are rejected
	assert.Error(t, store.Remove("/media/../secrets"))
	assert.Error(t, store.Remove("/etc/passwd"))
}

func Test_Ext(t *testing.T) {
	assert.Equal(t, "pdf", Ext("Bab 1.PDF"))
	assert.Equal(t, "docx", Ext("notes.docx"))
	assert.Equal(t, "", Ext("README"))
}
