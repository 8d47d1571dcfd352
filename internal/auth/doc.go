// Package auth verifies the bearer tokens that guard the facility API.
//
// Tokens are HS256 JWTs carrying a subject, one of three roles and an
// optional list of sites. Roles map to a fixed permission set:
//
//	viewer    read sites, hours and manifests
//	operator  viewer + trigger compiles
//	admin     operator + system endpoints
//
// A token with no sites may access every site.
package auth
