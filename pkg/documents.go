package lldapcli

// Fixed GraphQL documents issued by the domain services. The transport
// treats these as opaque strings plus a variables mapping; the catalog is
// the full query surface of the CLI.

const docListUsers = `query ListUsers {
  users {
    id
    email
    displayName
    firstName
    lastName
    creationDate
  }
}`

const docGetUser = `query GetUser($id: String!) {
  user(userId: $id) {
    id
    email
    displayName
    firstName
    lastName
    creationDate
    uuid
    attributes {
      name
      value
    }
    groups {
      groupId
      displayName
    }
  }
}`

const docCreateUser = `mutation CreateUser($user: CreateUserInput!) {
  createUser(user: $user) {
    id
    email
    displayName
    creationDate
  }
}`

const docUpdateUser = `mutation UpdateUser($user: UpdateUserInput!) {
  updateUser(user: $user) {
    ok
  }
}`

const docDeleteUser = `mutation DeleteUser($id: String!) {
  deleteUser(userId: $id) {
    ok
  }
}`

const docListGroups = `query ListGroups {
  groups {
    groupId
    displayName
    creationDate
  }
}`

const docGetGroup = `query GetGroup($id: Int!) {
  group(groupId: $id) {
    groupId
    displayName
    creationDate
    uuid
    attributes {
      name
      value
    }
    users {
      id
      displayName
    }
  }
}`

const docCreateGroup = `mutation CreateGroup($name: String!) {
  createGroup(name: $name) {
    groupId
    displayName
  }
}`

const docUpdateGroup = `mutation UpdateGroup($group: UpdateGroupInput!) {
  updateGroup(group: $group) {
    ok
  }
}`

const docDeleteGroup = `mutation DeleteGroup($id: Int!) {
  deleteGroup(groupId: $id) {
    ok
  }
}`

const docAddUserToGroup = `mutation AddUserToGroup($userId: String!, $groupId: Int!) {
  addUserToGroup(userId: $userId, groupId: $groupId) {
    ok
  }
}`

const docRemoveUserFromGroup = `mutation RemoveUserFromGroup($userId: String!, $groupId: Int!) {
  removeUserFromGroup(userId: $userId, groupId: $groupId) {
    ok
  }
}`

const docGetSchema = `query GetSchema {
  schema {
    userSchema {
      attributes {
        name
        attributeType
        isList
        isVisible
        isEditable
        isHardcoded
      }
      extraLdapObjectClasses
    }
    groupSchema {
      attributes {
        name
        attributeType
        isList
        isVisible
        isEditable
        isHardcoded
      }
      extraLdapObjectClasses
    }
  }
}`

const docAddUserAttribute = `mutation AddUserAttribute($name: String!, $attributeType: AttributeType!, $isList: Boolean!, $isVisible: Boolean!, $isEditable: Boolean!) {
  addUserAttribute(name: $name, attributeType: $attributeType, isList: $isList, isVisible: $isVisible, isEditable: $isEditable) {
    ok
  }
}`

const docDeleteUserAttribute = `mutation DeleteUserAttribute($name: String!) {
  deleteUserAttribute(name: $name) {
    ok
  }
}`

const docAddGroupAttribute = `mutation AddGroupAttribute($name: String!, $attributeType: AttributeType!, $isList: Boolean!, $isVisible: Boolean!, $isEditable: Boolean!) {
  addGroupAttribute(name: $name, attributeType: $attributeType, isList: $isList, isVisible: $isVisible, isEditable: $isEditable) {
    ok
  }
}`

const docDeleteGroupAttribute = `mutation DeleteGroupAttribute($name: String!) {
  deleteGroupAttribute(name: $name) {
    ok
  }
}`

const docAddUserObjectClass = `mutation AddUserObjectClass($name: String!) {
  addUserObjectClass(name: $name) {
    ok
  }
}`

const docDeleteUserObjectClass = `mutation DeleteUserObjectClass($name: String!) {
  deleteUserObjectClass(name: $name) {
    ok
  }
}`

const docAddGroupObjectClass = `mutation AddGroupObjectClass($name: String!) {
  addGroupObjectClass(name: $name) {
    ok
  }
}`

const docDeleteGroupObjectClass = `mutation DeleteGroupObjectClass($name: String!) {
  deleteGroupObjectClass(name: $name) {
    ok
  }
}`

// allDocuments lists every fixed document so tests can parse the whole
// catalog for well-formedness.
var allDocuments = map[string]string{
	"ListUsers":              docListUsers,
	"GetUser":                docGetUser,
	"CreateUser":             docCreateUser,
	"UpdateUser":             docUpdateUser,
	"DeleteUser":             docDeleteUser,
	"ListGroups":             docListGroups,
	"GetGroup":               docGetGroup,
	"CreateGroup":            docCreateGroup,
	"UpdateGroup":            docUpdateGroup,
	"DeleteGroup":            docDeleteGroup,
	"AddUserToGroup":         docAddUserToGroup,
	"RemoveUserFromGroup":    docRemoveUserFromGroup,
	"GetSchema":              docGetSchema,
	"AddUserAttribute":       docAddUserAttribute,
	"DeleteUserAttribute":    docDeleteUserAttribute,
	"AddGroupAttribute":      docAddGroupAttribute,
	"DeleteGroupAttribute":   docDeleteGroupAttribute,
	"AddUserObjectClass":     docAddUserObjectClass,
	"DeleteUserObjectClass":  docDeleteUserObjectClass,
	"AddGroupObjectClass":    docAddGroupObjectClass,
	"DeleteGroupObjectClass": docDeleteGroupObjectClass,
}
