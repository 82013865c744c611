// Package tasks is the ownership-scoped task resource.
//
// Every operation takes the caller's session.Identity. The owner is stamped
// from it on create, and every read and write filters by id and owner in the
// same query, so a task owned by someone else is indistinguishable from a
// missing one. Committed mutations are handed to a Publisher.
package tasks
