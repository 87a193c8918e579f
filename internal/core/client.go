package core

import (
	"github.com/git-pkgs/assemblies/client"
)

// Type aliases so feed implementations only import core.
type (
	RateLimiter = client.RateLimiter
	Client      = client.Client
	Option      = client.Option
	URLBuilder  = client.URLBuilder
	BaseURLs    = client.BaseURLs
)

// Function aliases so feed implementations only import core.
var (
	DefaultClient     = client.DefaultClient
	NewClient         = client.NewClient
	WithTimeout       = client.WithTimeout
	WithMaxRetries    = client.WithMaxRetries
	BuildURLs         = client.BuildURLs
	FlatContainerURLs = client.FlatContainerURLs
	IsNotFound        = client.IsNotFound
)
