package lldapcli

import (
	"context"
)

// User is the CLI-facing shape of a directory user.
type User struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	DisplayName  string           `json:"displayName"`
	FirstName    string           `json:"firstName"`
	LastName     string           `json:"lastName"`
	CreationDate string           `json:"creationDate"`
	UUID         string           `json:"uuid,omitempty"`
	Attributes   []AttributeValue `json:"attributes,omitempty"`
	Groups       []GroupRef       `json:"groups,omitempty"`
}

// AttributeValue is a named multi-valued attribute on a user or group.
type AttributeValue struct {
	Name  string   `json:"name"`
	Value []string `json:"value"`
}

// GroupRef is the membership view of a group as seen from a user.
type GroupRef struct {
	GroupID     int    `json:"groupId"`
	DisplayName string `json:"displayName"`
}

// CreateUserInput carries the fields for user creation. Avatar holds
// base64-encoded image bytes and is spliced in by the transport on upload.
type CreateUserInput struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// UserService issues the fixed user-administration documents through the
// Transport and shapes results for the CLI layer.
type UserService struct {
	transport *Transport
}

// NewUserService creates a UserService bound to the given transport.
func NewUserService(t *Transport) *UserService {
	return &UserService{transport: t}
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := s.transport.QueryInto(ctx, docListUsers, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Get returns the full detail of one user.
func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	if err := s.transport.Validator().ValidateUsername(id); err != nil {
		return nil, err
	}
	var out struct {
		User User `json:"user"`
	}
	vars := map[string]interface{}{"id": id}
	if err := s.transport.QueryInto(ctx, docGetUser, vars, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Create creates a user after validating id and email.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	v := s.transport.Validator()
	if err := v.ValidateUsername(input.ID); err != nil {
		return nil, err
	}
	if err := v.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := v.ValidateStringInput(input.DisplayName, "display name"); err != nil {
		return nil, err
	}
	var out struct {
		CreateUser User `json:"createUser"`
	}
	vars := map[string]interface{}{"user": input}
	if err := s.transport.QueryInto(ctx, docCreateUser, vars, &out); err != nil {
		return nil, err
	}
	return &out.CreateUser, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.transport.Validator().ValidateUsername(id); err != nil {
		return err
	}
	vars := map[string]interface{}{"id": id}
	_, err := s.transport.Query(ctx, docDeleteUser, vars)
	return err
}

// Update applies field changes to a user. fields maps UpdateUserInput field
// names (email, displayName, firstName, lastName) to new values.
func (s *UserService) Update(ctx context.Context, id string, fields map[string]string) error {
	v := s.transport.Validator()
	if err := v.ValidateUsername(id); err != nil {
		return err
	}
	user := map[string]interface{}{"id": id}
	for name, value := range fields {
		if name == "email" {
			if err := v.ValidateEmail(value); err != nil {
				return err
			}
		} else if err := v.ValidateStringInput(value, name); err != nil {
			return err
		}
		user[name] = value
	}
	vars := map[string]interface{}{"user": user}
	_, err := s.transport.Query(ctx, docUpdateUser, vars)
	return err
}

// SetAvatar uploads an image file as the user's avatar. The empty avatar
// field is the placeholder the transport fills with the base64 payload.
func (s *UserService) SetAvatar(ctx context.Context, id, filePath string) error {
	if err := s.transport.Validator().ValidateUsername(id); err != nil {
		return err
	}
	vars := map[string]interface{}{
		"user": map[string]interface{}{"id": id, "avatar": ""},
	}
	_, err := s.transport.QueryWithUpload(ctx, docUpdateUser, vars, filePath)
	return err
}

// AddAttributeValues inserts values into a user attribute.
func (s *UserService) AddAttributeValues(ctx context.Context, id, attribute string, values []string) error {
	v := s.transport.Validator()
	if err := v.ValidateUsername(id); err != nil {
		return err
	}
	if err := v.ValidateStringInput(attribute, "attribute name"); err != nil {
		return err
	}
	user := map[string]interface{}{
		"id":               id,
		"insertAttributes": []AttributeValue{{Name: attribute, Value: values}},
	}
	_, err := s.transport.Query(ctx, docUpdateUser, map[string]interface{}{"user": user})
	return err
}

// RemoveAttributeValue deletes one value from a user attribute. The
// remaining list is computed first; when it would become empty the
// mutation switches to clear semantics (removeAttributes) instead of
// writing an empty insert.
func (s *UserService) RemoveAttributeValue(ctx context.Context, id, attribute, value string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var remaining []string
	for _, attr := range user.Attributes {
		if attr.Name != attribute {
			continue
		}
		for _, v := range attr.Value {
			if v != value {
				remaining = append(remaining, v)
			}
		}
	}

	update := map[string]interface{}{"id": id}
	if len(remaining) == 0 {
		update["removeAttributes"] = []string{attribute}
	} else {
		update["insertAttributes"] = []AttributeValue{{Name: attribute, Value: remaining}}
	}
	_, err = s.transport.Query(ctx, docUpdateUser, map[string]interface{}{"user": update})
	return err
}

// ClearAttribute removes a user attribute entirely.
func (s *UserService) ClearAttribute(ctx context.Context, id, attribute string) error {
	v := s.transport.Validator()
	if err := v.ValidateUsername(id); err != nil {
		return err
	}
	if err := v.ValidateStringInput(attribute, "attribute name"); err != nil {
		return err
	}
	user := map[string]interface{}{
		"id":               id,
		"removeAttributes": []string{attribute},
	}
	_, err := s.transport.Query(ctx, docUpdateUser, map[string]interface{}{"user": user})
	return err
}
