// Package crawler defines the domain types shared by the link checker: fetch
// requests and responses, per-URL outcomes, the run report, the error
// taxonomy, and the interfaces implemented by transports, stores, and
// publishers.
package crawler
