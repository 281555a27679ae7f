package pinsmith

// Version is the release of the pinsmith module and CLI.
const Version = "0.3.0"
