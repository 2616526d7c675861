package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
)

const sample = `{
  "products": [
    {"id": "p-1", "company_id": "c1", "sku": "A-1", "name": "Arroz"},
    {"id": "p-2", "company_id": "c1", "sku": "J-1", "name": "Jarabe", "batch_tracked": true}
  ],
  "warehouses": [
    {"id": "w-1", "company_id": "c1", "name": "Principal"}
  ]
}`

func TestLoad_CatalogoValido(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := catalog.Load(path)
	require.NoError(t, err)
	require.Len(t, c.Products, 2)
	require.Len(t, c.Warehouses, 1)
	assert.True(t, c.Products[1].BatchTracked)
	assert.Equal(t, "Principal", c.Warehouses[0].Name)
}

func TestDecode_Errores(t *testing.T) {
	cases := map[string]string{
		"sin empresa":      `{"products":[{"id":"p-1"}]}`,
		"repetido":         `{"warehouses":[{"id":"w","company_id":"c"},{"id":"w","company_id":"c"}]}`,
		"campo extraño":    `{"productos":[]}`,
		"json mal formado": `{`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Decode(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ArchivoInexistente(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "no-existe.json"))
	assert.Error(t, err)
}
