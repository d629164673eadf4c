// Package seat provides the input seat collaborator of the popup core: a
// lazily created popup grab chain shared by every grab taken on the seat,
// and a keyboard focus handle.
package seat
