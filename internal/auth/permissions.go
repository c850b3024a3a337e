package auth

// Capability codenames checked by the permission evaluator.
const (
	CapAddBook       = "add_book"
	CapViewBook      = "view_book"
	CapChangeBook    = "change_book"
	CapDeleteBook    = "delete_book"
	CapAdministrator = "administrator"
)

// BuiltinPermissions is the full permission catalog seeded at startup.
var BuiltinPermissions = []Permission{
	{Codename: CapAddBook, Name: "Can add book"},
	{Codename: CapViewBook, Name: "Can view book"},
	{Codename: CapChangeBook, Name: "Can change book"},
	{Codename: CapDeleteBook, Name: "Can delete book"},
	{Codename: CapAdministrator, Name: "Administrator"},
}

// KnownCapability reports whether codename is part of the catalog.
func KnownCapability(codename string) bool {
	for _, p := range BuiltinPermissions {
		if p.Codename == codename {
			return true
		}
	}
	return false
}
