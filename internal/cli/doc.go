// Package cli provides the interactive coursestore storefront.
//
// App wires the configuration and the service bundle to a small REPL.
// On start it provisions the operator account, finishes any checkout left
// behind by a previous run and restores the stored login. Users browse the
// catalog, manage a cart and check out; operators get the "admin" command
// family.
//
// Interactive input goes through GetSimpleText and GetPassword; the latter
// reads without echo when stdin is a terminal.
package cli
