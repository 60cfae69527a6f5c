// Package linkit manages hyperlink identities on a structured document.
//
// A link is a single "link" mark on text runs. Its attributes are the href
// plus free-form metadata, and together they form the Identity. The Editor
// resolves the ranges a link operation acts on, projects identities onto
// them inside a model change block, and keeps button containers uniform and
// plain containers free of formatting through postfixers.
//
// Link targets are picked by an external LinkSelector. A request stores the
// selection and applies the picked identity when the selector completes. A
// completion that arrives after the selection went stale is dropped.
package linkit
