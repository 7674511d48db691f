package types

// Version is the canonical agent version, reported by --version and logged
// at startup.
const Version = "0.3.0"
