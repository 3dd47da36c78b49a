package common

// PackageName is the canonical short name of this project, used to
// identify the daemon's metrics server.
const PackageName = "attestord"

// Version is the service version, set at build time via
// -ldflags "-X github.com/Subaskar-S/Decentralized-Identity-Management-System/common.Version=v1.2.3".
var Version = "dev"
