// Package accounts implements the account flows of a multi-tenant SaaS
// application on top of an external identity, document, and blob storage
// platform: federated sign-in (popup or redirect strategy), redirect
// completion, server-side session creation, profile and organization
// updates with avatar/logo replacement, and phone number linking.
//
// The package owns orchestration only. Identity, record persistence, and
// blob storage are collaborator interfaces; adapters live in the
// provider/hosted, repository, and storage subpackages.
package accounts
