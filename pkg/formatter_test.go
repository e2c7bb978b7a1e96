package lldapcli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatterRegistry(t *testing.T) {
	reg := NewFormatterRegistry()

	require.ElementsMatch(t, []string{"json", "json-pretty", "table", "toon"}, reg.List())

	_, err := reg.Get("json")
	require.NoError(t, err)
	_, err = reg.Get("unknown")
	require.Error(t, err)

	err = reg.Register("json", NewJSONFormatter(false))
	require.Error(t, err, "duplicate registration is rejected")
}

func TestTableFormatter_Rows(t *testing.T) {
	f := NewTableFormatter()
	out, err := f.Format([]User{
		{ID: "admin", Email: "admin@example.com", DisplayName: "Admin"},
		{ID: "jdoe", Email: "jdoe@example.com", DisplayName: "John Doe"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	require.Contains(t, lines[0], "ID")
	require.Contains(t, lines[0], "EMAIL")
	require.Contains(t, out, "admin@example.com")
	require.Contains(t, out, "John Doe")
}

func TestTableFormatter_SingleObject(t *testing.T) {
	f := NewTableFormatter()
	out, err := f.Format(User{ID: "admin", Email: "admin@example.com"})
	require.NoError(t, err)
	require.Contains(t, out, "FIELD")
	require.Contains(t, out, "admin@example.com")
}

func TestTableFormatter_Empty(t *testing.T) {
	f := NewTableFormatter()
	out, err := f.Format([]User{})
	require.NoError(t, err)
	require.Contains(t, out, "no results")
}

func TestJSONFormatter(t *testing.T) {
	plain, err := NewJSONFormatter(false).Format([]Group{{GroupID: 3, DisplayName: "admins"}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"groupId":3,"displayName":"admins","creationDate":""}]`, plain)

	pretty, err := NewJSONFormatter(true).Format([]Group{{GroupID: 3, DisplayName: "admins"}})
	require.NoError(t, err)
	require.Contains(t, pretty, "\n  ")
}
