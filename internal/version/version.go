package version

// Version is set at build time:
//   -ldflags "-X github.com/arencloud/cloudgate/internal/version.Version=vX.Y.Z"
var Version = "dev"
