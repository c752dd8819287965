// Package server is the development server. It answers requests straight
// from the route table, rendering each page on demand, and reloads the site
// when sources change.
package server
