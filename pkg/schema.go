package lldapcli

import (
	"context"
	"strings"
)

// SchemaAttribute describes one attribute definition in the user or group
// schema.
type SchemaAttribute struct {
	Name          string `json:"name"`
	AttributeType string `json:"attributeType"`
	IsList        bool   `json:"isList"`
	IsVisible     bool   `json:"isVisible"`
	IsEditable    bool   `json:"isEditable"`
	IsHardcoded   bool   `json:"isHardcoded"`
}

// ObjectSchema is the attribute list plus extra LDAP object classes for one
// side of the schema (users or groups).
type ObjectSchema struct {
	Attributes             []SchemaAttribute `json:"attributes"`
	ExtraLdapObjectClasses []string          `json:"extraLdapObjectClasses"`
}

// Schema is the full directory schema as exposed by the API.
type Schema struct {
	UserSchema  ObjectSchema `json:"userSchema"`
	GroupSchema ObjectSchema `json:"groupSchema"`
}

// Attribute types accepted by the server.
var attributeTypes = []string{"STRING", "INTEGER", "DATE_TIME", "JPEG_PHOTO"}

// SchemaService manages attribute and object-class definitions.
type SchemaService struct {
	transport *Transport
}

// NewSchemaService creates a SchemaService bound to the given transport.
func NewSchemaService(t *Transport) *SchemaService {
	return &SchemaService{transport: t}
}

// Get returns the full schema.
func (s *SchemaService) Get(ctx context.Context) (*Schema, error) {
	var out struct {
		Schema Schema `json:"schema"`
	}
	if err := s.transport.QueryInto(ctx, docGetSchema, nil, &out); err != nil {
		return nil, err
	}
	return &out.Schema, nil
}

// AddAttribute defines a new attribute on the user or group schema.
func (s *SchemaService) AddAttribute(ctx context.Context, onGroups bool, name, attrType string, isList, isVisible, isEditable bool) error {
	if err := s.transport.Validator().ValidateStringInput(name, "attribute name"); err != nil {
		return err
	}
	attrType = strings.ToUpper(attrType)
	if !validAttributeType(attrType) {
		return NewError(KindUsage, "unknown attribute type %q (expected one of %s)", attrType, strings.Join(attributeTypes, ", "))
	}
	doc := docAddUserAttribute
	if onGroups {
		doc = docAddGroupAttribute
	}
	vars := map[string]interface{}{
		"name":          name,
		"attributeType": attrType,
		"isList":        isList,
		"isVisible":     isVisible,
		"isEditable":    isEditable,
	}
	_, err := s.transport.Query(ctx, doc, vars)
	return err
}

// DeleteAttribute removes an attribute definition.
func (s *SchemaService) DeleteAttribute(ctx context.Context, onGroups bool, name string) error {
	if err := s.transport.Validator().ValidateStringInput(name, "attribute name"); err != nil {
		return err
	}
	doc := docDeleteUserAttribute
	if onGroups {
		doc = docDeleteGroupAttribute
	}
	_, err := s.transport.Query(ctx, doc, map[string]interface{}{"name": name})
	return err
}

// AddObjectClass registers an extra LDAP object class.
func (s *SchemaService) AddObjectClass(ctx context.Context, onGroups bool, name string) error {
	if err := s.transport.Validator().ValidateStringInput(name, "object class"); err != nil {
		return err
	}
	doc := docAddUserObjectClass
	if onGroups {
		doc = docAddGroupObjectClass
	}
	_, err := s.transport.Query(ctx, doc, map[string]interface{}{"name": name})
	return err
}

// DeleteObjectClass removes an extra LDAP object class.
func (s *SchemaService) DeleteObjectClass(ctx context.Context, onGroups bool, name string) error {
	if err := s.transport.Validator().ValidateStringInput(name, "object class"); err != nil {
		return err
	}
	doc := docDeleteUserObjectClass
	if onGroups {
		doc = docDeleteGroupObjectClass
	}
	_, err := s.transport.Query(ctx, doc, map[string]interface{}{"name": name})
	return err
}

func validAttributeType(t string) bool {
	for _, known := range attributeTypes {
		if t == known {
			return true
		}
	}
	return false
}
