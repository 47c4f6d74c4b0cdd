// Package models defines the values exchanged with the remote video API.
//
//   - [User] : the authenticated identity returned by /users/me and /users/login
//   - [Video] : a catalog entry or a full video record
//   - [Owner] : the uploader summary embedded in a video, which the API sends either as an object or as a bare ID
//   - [VideoPage] : one page of the catalog, normalized from either a bare array or a paginated envelope
//
// The client treats these as opaque: fields are read when present and nothing is validated or normalized beyond that.
package models
