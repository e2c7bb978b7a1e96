package lldapcli

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Every fixed document must be a well-formed GraphQL operation: a typo here
// would only surface as a server-side error at runtime.
func TestDocumentCatalogParses(t *testing.T) {
	require.NotEmpty(t, allDocuments)
	for name, query := range allDocuments {
		t.Run(name, func(t *testing.T) {
			doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: query})
			require.Nil(t, err)
			require.Len(t, doc.Operations, 1)
			require.Equal(t, name, doc.Operations[0].Name)
		})
	}
}
