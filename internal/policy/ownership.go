package policy

// Ownable is an interface for resources that have an owner.
// Implement this on your models to enable ownership-based authorization.
type Ownable interface {
	GetUserID() uint
}

// Owns checks if the user owns the resource. Resources that do not
// implement Ownable are denied by default so a model cannot accidentally
// skip ownership checks.
func Owns(userID uint, resource any) bool {
	if resource == nil {
		return false
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}
