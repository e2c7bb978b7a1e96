package lldapcli

import (
	"context"
)

// Group is the CLI-facing shape of a directory group.
type Group struct {
	GroupID      int              `json:"groupId"`
	DisplayName  string           `json:"displayName"`
	CreationDate string           `json:"creationDate"`
	UUID         string           `json:"uuid,omitempty"`
	Attributes   []AttributeValue `json:"attributes,omitempty"`
	Users        []UserRef        `json:"users,omitempty"`
}

// UserRef is the membership view of a user as seen from a group.
type UserRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// GroupService issues the fixed group-administration documents.
type GroupService struct {
	transport *Transport
}

// NewGroupService creates a GroupService bound to the given transport.
func NewGroupService(t *Transport) *GroupService {
	return &GroupService{transport: t}
}

// List returns all groups.
func (s *GroupService) List(ctx context.Context) ([]Group, error) {
	var out struct {
		Groups []Group `json:"groups"`
	}
	if err := s.transport.QueryInto(ctx, docListGroups, nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// Get returns the full detail of one group including members.
func (s *GroupService) Get(ctx context.Context, groupID int) (*Group, error) {
	var out struct {
		Group Group `json:"group"`
	}
	vars := map[string]interface{}{"id": groupID}
	if err := s.transport.QueryInto(ctx, docGetGroup, vars, &out); err != nil {
		return nil, err
	}
	return &out.Group, nil
}

// Create creates a group with the given display name.
func (s *GroupService) Create(ctx context.Context, name string) (*Group, error) {
	if err := s.transport.Validator().ValidateStringInput(name, "group name"); err != nil {
		return nil, err
	}
	var out struct {
		CreateGroup Group `json:"createGroup"`
	}
	vars := map[string]interface{}{"name": name}
	if err := s.transport.QueryInto(ctx, docCreateGroup, vars, &out); err != nil {
		return nil, err
	}
	return &out.CreateGroup, nil
}

// Rename changes a group's display name.
func (s *GroupService) Rename(ctx context.Context, groupID int, name string) error {
	if err := s.transport.Validator().ValidateStringInput(name, "group name"); err != nil {
		return err
	}
	group := map[string]interface{}{"id": groupID, "displayName": name}
	_, err := s.transport.Query(ctx, docUpdateGroup, map[string]interface{}{"group": group})
	return err
}

// Delete removes a group.
func (s *GroupService) Delete(ctx context.Context, groupID int) error {
	vars := map[string]interface{}{"id": groupID}
	_, err := s.transport.Query(ctx, docDeleteGroup, vars)
	return err
}

// AddMember adds a user to a group.
func (s *GroupService) AddMember(ctx context.Context, userID string, groupID int) error {
	if err := s.transport.Validator().ValidateUsername(userID); err != nil {
		return err
	}
	vars := map[string]interface{}{"userId": userID, "groupId": groupID}
	_, err := s.transport.Query(ctx, docAddUserToGroup, vars)
	return err
}

// RemoveMember removes a user from a group.
func (s *GroupService) RemoveMember(ctx context.Context, userID string, groupID int) error {
	if err := s.transport.Validator().ValidateUsername(userID); err != nil {
		return err
	}
	vars := map[string]interface{}{"userId": userID, "groupId": groupID}
	_, err := s.transport.Query(ctx, docRemoveUserFromGroup, vars)
	return err
}
