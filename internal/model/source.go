// Package model defines the data structures for the obfuscation pipeline.
package model

// Path represents a file system path.
type Path string

// Dialect identifies the source-code dialect of a file.
type Dialect string

const (
	// DialectObjC covers Objective-C headers and implementations (.h, .m, .mm).
	DialectObjC Dialect = "objc"
	// DialectSwift covers Swift sources (.swift).
	DialectSwift Dialect = "swift"
)

// File represents a discovered source file together with its content hash.
type File struct {
	Path    Path
	Dialect Dialect
	Hash    string
}

// ResourceFamily identifies one of the supported binary resource containers.
type ResourceFamily string

const (
	// FamilyCatalog is a directory-based asset catalog (.xcassets).
	FamilyCatalog ResourceFamily = "catalog"
	// FamilyImage is a raster image (PNG, JPEG).
	FamilyImage ResourceFamily = "image"
	// FamilyAudio is an audio container (MP3, WAV, M4A).
	FamilyAudio ResourceFamily = "audio"
	// FamilyFont is an SFNT font container (TTF, OTF).
	FamilyFont ResourceFamily = "font"
)
