package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
)

func TestSwift_TypeDeclarations(t *testing.T) {
	src := []byte(`import Foundation

public final class SessionManager {
}

struct CachePolicy {
}

enum SyncState {
    case idle
}

actor TokenVault {
}

protocol Refreshable {
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Session.swift")
	require.Empty(t, errs)

	assert.NotNil(t, findSymbol(symbols, "SessionManager", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "CachePolicy", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "SyncState", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "TokenVault", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "Refreshable", m.KindProtocol))
}

func TestSwift_GenericParametersNotEmitted(t *testing.T) {
	src := []byte(`class Repository<Element: Codable, Key: Hashable> {
    func fetch<T: Decodable>(id: Key) -> T? { nil }
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Repository.swift")
	require.Empty(t, errs)

	assert.NotNil(t, findSymbol(symbols, "Repository", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "fetch", m.KindMethod))
	assert.Nil(t, findSymbol(symbols, "Element", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "Key", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "T", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "Codable", m.KindClass))
}

func TestSwift_FuncLabels(t *testing.T) {
	src := []byte(`class Loader {
    func load() {}
    func loadData() {}
    func upload(file path: String, to destination: URL, _ retries: Int) {}
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Loader.swift")
	require.Empty(t, errs)

	load := findSymbol(symbols, "load", m.KindMethod)
	require.NotNil(t, load)
	assert.Equal(t, []string{"load"}, load.Labels)

	loadData := findSymbol(symbols, "loadData", m.KindMethod)
	require.NotNil(t, loadData)
	assert.Equal(t, []string{"loadData"}, loadData.Labels)

	upload := findSymbol(symbols, "upload", m.KindMethod)
	require.NotNil(t, upload)
	assert.Equal(t, []string{"upload", "file", "to"}, upload.Labels, "wildcard labels omitted")
}

func TestSwift_StoredPropertiesOnlyInsideTypeBodies(t *testing.T) {
	src := []byte(`let topLevel = 1

class Config {
    var timeout: Double = 30
    let retryLimit = 3

    func reset() {
        var scratch = 0
        scratch += 1
    }
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Config.swift")
	require.Empty(t, errs)

	assert.NotNil(t, findSymbol(symbols, "timeout", m.KindProperty))
	assert.NotNil(t, findSymbol(symbols, "retryLimit", m.KindProperty))
	assert.Nil(t, findSymbol(symbols, "topLevel", m.KindProperty), "top-level bindings are not type members")
	assert.Nil(t, findSymbol(symbols, "scratch", m.KindProperty), "function locals are not properties")
}

func TestSwift_ExtensionRecordsExtendedType(t *testing.T) {
	src := []byte(`extension SessionManager {
    func invalidate() {}
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Session+Ext.swift")
	require.Empty(t, errs)

	// The extension shares the class mapping rather than declaring a
	// separately renameable name.
	assert.NotNil(t, findSymbol(symbols, "SessionManager", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "SessionManager", m.KindCategory))
	assert.NotNil(t, findSymbol(symbols, "invalidate", m.KindMethod))
}

func TestSwift_ClassFuncIsNotATypeDeclaration(t *testing.T) {
	src := []byte(`class Registry {
    class func shared() -> Registry { Registry() }
    class var count: Int { 0 }
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Registry.swift")
	require.Empty(t, errs)

	assert.NotNil(t, findSymbol(symbols, "Registry", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "shared", m.KindMethod))
	assert.Nil(t, findSymbol(symbols, "func", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "var", m.KindClass))
}

func TestSwift_MultilineStringsAndNestedCommentsProtected(t *testing.T) {
	src := []byte(`let banner = """
class FakeFromString {
func fakeFunc() {}
"""

/* outer /* nested class FakeNested {} */ still comment */
class RealThing {
}
`)

	symbols, errs := NewSwiftHandler().Extract(src, "Banner.swift")
	require.Empty(t, errs)

	assert.Nil(t, findSymbol(symbols, "FakeFromString", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "fakeFunc", m.KindMethod))
	assert.Nil(t, findSymbol(symbols, "FakeNested", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "RealThing", m.KindClass))
}

func TestMask_StringAndCommentInteriorsBlanked(t *testing.T) {
	src := []byte(`x = "hello" // trailing
y = 2 /* block */ + z`)

	masked := Mask(src, m.DialectSwift)

	assert.NotContains(t, string(masked), "hello")
	assert.NotContains(t, string(masked), "trailing")
	assert.NotContains(t, string(masked), "block")
	assert.Contains(t, string(masked), "x = ")
	assert.Contains(t, string(masked), "+ z")
	assert.Len(t, masked, len(src), "masking preserves byte offsets")
}
