package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "app:pw@tcp(db:3306)/trading?charset=utf8mb4&parseTime=true&loc=UTC",
		DSN("app", "pw", "db", "3306", "trading"))
	assert.Equal(t, "app@tcp(db:3306)/trading?charset=utf8mb4&parseTime=true&loc=UTC",
		DSN("app", "", "db", "3306", "trading"))
}

func TestMigrationsArePaired(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, f := range files {
		name := strings.TrimPrefix(f, "migrations/")
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrationsHoldOneStatement(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	for _, f := range files {
		b, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(b), ";"), f)
	}
}

func TestNodeAddressColumnsMatchInputLimits(t *testing.T) {
	b, err := fs.ReadFile(migrations, "migrations/000001_create_network_nodes.up.sql")
	require.NoError(t, err)
	ddl := strings.Join(strings.Fields(string(b)), " ")
	for _, col := range []string{"street VARCHAR(200)", "country VARCHAR(100)", "city VARCHAR(100)"} {
		assert.Contains(t, ddl, col)
	}
}
