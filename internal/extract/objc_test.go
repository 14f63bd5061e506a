package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
)

func findSymbol(symbols []m.Symbol, name string, kind m.SymbolKind) *m.Symbol {
	for i := range symbols {
		if symbols[i].Name == name && symbols[i].Kind == kind {
			return &symbols[i]
		}
	}

	return nil
}

func TestObjC_InterfaceAndMembers(t *testing.T) {
	src := []byte(`#import <Foundation/Foundation.h>

@interface UserStore : NSObject

@property (nonatomic, strong) NSString *userName;
@property (nonatomic, assign) NSInteger retryCount;

- (void)load;
- (void)loadData;
- (BOOL)writeRecord:(NSData *)data toPath:(NSString *)path;

@end
`)

	h := NewObjCHandler()
	symbols, errs := h.Extract(src, "UserStore.h")
	require.Empty(t, errs)

	require.NotNil(t, findSymbol(symbols, "UserStore", m.KindClass))
	require.NotNil(t, findSymbol(symbols, "userName", m.KindProperty))
	require.NotNil(t, findSymbol(symbols, "retryCount", m.KindProperty))

	load := findSymbol(symbols, "load", m.KindMethod)
	require.NotNil(t, load)
	assert.Equal(t, []string{"load"}, load.Labels)

	loadData := findSymbol(symbols, "loadData", m.KindMethod)
	require.NotNil(t, loadData, "loadData must be its own symbol, not a prefix match of load")
	assert.Equal(t, []string{"loadData"}, loadData.Labels)

	write := findSymbol(symbols, "writeRecord", m.KindMethod)
	require.NotNil(t, write)
	assert.Equal(t, []string{"writeRecord", "toPath"}, write.Labels, "full label sequence captured atomically")
}

func TestObjC_CategoryAndImplementation(t *testing.T) {
	src := []byte(`@interface UserStore (Caching)
- (void)flushCache;
@end

@implementation UserStore (Caching)
- (void)flushCache {
}
@end
`)

	symbols, errs := NewObjCHandler().Extract(src, "UserStore+Caching.m")
	require.Empty(t, errs)

	assert.NotNil(t, findSymbol(symbols, "Caching", m.KindCategory))
	assert.NotNil(t, findSymbol(symbols, "UserStore", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "flushCache", m.KindMethod))
}

func TestObjC_ProtocolForwardDeclarationSkipped(t *testing.T) {
	src := []byte(`@protocol StoreDelegate, CacheDelegate;

@protocol SyncDelegate <NSObject>
- (void)didSync;
@end
`)

	symbols, errs := NewObjCHandler().Extract(src, "Delegates.h")
	require.Empty(t, errs)

	assert.Nil(t, findSymbol(symbols, "StoreDelegate", m.KindProtocol))
	assert.Nil(t, findSymbol(symbols, "CacheDelegate", m.KindProtocol))
	assert.NotNil(t, findSymbol(symbols, "SyncDelegate", m.KindProtocol))
	assert.NotNil(t, findSymbol(symbols, "didSync", m.KindMethod))
}

func TestObjC_DeclarationsInCommentsAndStringsIgnored(t *testing.T) {
	src := []byte(`// @interface FakeOne : NSObject
/*
@interface FakeTwo : NSObject
- (void)fakeMethod;
*/
@interface RealStore : NSObject
- (void)logBanner; // prints "@interface Banner"
@end

@implementation RealStore
- (void)logBanner {
    NSLog(@"@interface StringFake : NSObject");
}
@end
`)

	symbols, errs := NewObjCHandler().Extract(src, "RealStore.m")
	require.Empty(t, errs)

	assert.Nil(t, findSymbol(symbols, "FakeOne", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "FakeTwo", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "fakeMethod", m.KindMethod))
	assert.Nil(t, findSymbol(symbols, "StringFake", m.KindClass))
	assert.Nil(t, findSymbol(symbols, "Banner", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "RealStore", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "logBanner", m.KindMethod))
}

func TestObjC_ContinuationLineMacroNotMisread(t *testing.T) {
	src := []byte(`#define DECLARE_STORE(name) \
    @interface name : NSObject \
    @end

@interface ActualStore : NSObject
@end
`)

	symbols, errs := NewObjCHandler().Extract(src, "Macros.h")
	require.Empty(t, errs)

	// The continuation-joined macro body starts with #define, so the
	// @interface inside it is not treated as a standalone declaration.
	assert.Nil(t, findSymbol(symbols, "name", m.KindClass))
	assert.NotNil(t, findSymbol(symbols, "ActualStore", m.KindClass))
}

func TestObjC_MultiLineMethodDeclaration(t *testing.T) {
	src := []byte(`@interface Uploader : NSObject
- (void)uploadChunk:(NSData *)chunk
           progress:(void (^)(double))progress
         completion:(void (^)(NSError *))completion;
@end
`)

	symbols, errs := NewObjCHandler().Extract(src, "Uploader.h")
	require.Empty(t, errs)

	sym := findSymbol(symbols, "uploadChunk", m.KindMethod)
	require.NotNil(t, sym)
	assert.Equal(t, []string{"uploadChunk", "progress", "completion"}, sym.Labels)
}

func TestObjC_MalformedDeclarationsSkippedSilently(t *testing.T) {
	src := []byte(`@interface
@property ;
- (void)
@interface Recovered : NSObject
@end
`)

	symbols, _ := NewObjCHandler().Extract(src, "Broken.h")
	assert.NotNil(t, findSymbol(symbols, "Recovered", m.KindClass), "extractor recovers after malformed input")
}

func TestForPath(t *testing.T) {
	h, ok := ForPath("Sources/App/UserStore.m")
	require.True(t, ok)
	assert.Equal(t, m.DialectObjC, h.Dialect())

	h, ok = ForPath("Sources/App/User.swift")
	require.True(t, ok)
	assert.Equal(t, m.DialectSwift, h.Dialect())

	_, ok = ForPath("README.md")
	assert.False(t, ok)
}
