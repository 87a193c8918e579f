// Package all imports all supported feed implementations.
//
// Import this package for its side effects to register every feed:
//
//	import (
//		"github.com/git-pkgs/assemblies"
//		_ "github.com/git-pkgs/assemblies/all"
//	)
//
//	// Now all feeds are available
//	feeds := assemblies.SupportedFeeds()
//	// ["folder", "nuget"]
package all

import (
	_ "github.com/git-pkgs/assemblies/internal/folder"
	_ "github.com/git-pkgs/assemblies/internal/nuget"
)
