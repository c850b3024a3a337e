package auth

// Action identifies the operation a request performs on a resource.
type Action string

const (
	ActionList          Action = "list"
	ActionCreate        Action = "create"
	ActionRetrieve      Action = "retrieve"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDestroy       Action = "destroy"
)

// Authorize is the type-level check performed before any resource is fetched.
// Creating a book requires add_book, listing requires view_book; every other
// action is decided at the object level.
func Authorize(p Principal, action Action) error {
	switch action {
	case ActionCreate:
		if !p.HasPermission(CapAddBook) {
			return ErrPermissionDenied
		}
	case ActionList:
		if !p.HasPermission(CapViewBook) {
			return ErrPermissionDenied
		}
	}
	return nil
}

// AuthorizeObject is the object-level check for a book with the given owner.
// Administrators may act on any book; everyone else must own it and hold
// view_book.
func AuthorizeObject(p Principal, action Action, ownerID string) error {
	switch action {
	case ActionRetrieve, ActionUpdate, ActionPartialUpdate, ActionDestroy:
		if p.HasPermission(CapAdministrator) {
			return nil
		}
		if p.User != nil && p.User.ID == ownerID && p.HasPermission(CapViewBook) {
			return nil
		}
		return ErrPermissionDenied
	}
	return nil
}
