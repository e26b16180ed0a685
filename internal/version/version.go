package version

// Version is the current version of ardenthat.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "0.1.0"
