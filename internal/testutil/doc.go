// Package testutil contains helper builders and fake collaborators used
// across tests to reduce boilerplate when constructing team state fixtures
// and failing teams. They are not intended for production usage.
package testutil
