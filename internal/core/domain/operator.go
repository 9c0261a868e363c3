package domain

// OperatorRole grants access to monitor control operations
type OperatorRole string

const (
	RoleViewer   OperatorRole = "viewer"
	RoleOperator OperatorRole = "operator"
)

// Allows reports whether r satisfies the required role
func (r OperatorRole) Allows(required OperatorRole) bool {
	switch required {
	case RoleViewer:
		return r == RoleViewer || r == RoleOperator
	case RoleOperator:
		return r == RoleOperator
	default:
		return false
	}
}
