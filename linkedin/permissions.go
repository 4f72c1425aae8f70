package linkedin

// Permission is a member permission the application asks for.
type Permission uint

const (
	PermissionConnections Permission = 1 << iota
	PermissionContactsInfo
	PermissionEmailAddress
	PermissionFullProfile
	PermissionGroupDiscussions
	PermissionMessages
	PermissionUpdates
)

// DefaultPermissions is what the group browser asks for.
const DefaultPermissions = PermissionConnections | PermissionContactsInfo |
	PermissionEmailAddress | PermissionFullProfile |
	PermissionGroupDiscussions | PermissionMessages |
	PermissionUpdates

var permissionScopes = []struct {
	permission Permission
	scope      string
}{
	{PermissionConnections, "r_network"},
	{PermissionContactsInfo, "r_contactinfo"},
	{PermissionEmailAddress, "r_emailaddress"},
	{PermissionFullProfile, "r_fullprofile"},
	{PermissionGroupDiscussions, "rw_groups"},
	{PermissionMessages, "w_messages"},
	{PermissionUpdates, "rw_nus"},
}

// Scopes returns the OAuth2 scopes of a permission set.
func Scopes(p Permission) []string {
	var scopes []string
	for _, ps := range permissionScopes {
		if p&ps.permission != 0 {
			scopes = append(scopes, ps.scope)
		}
	}
	return scopes
}
