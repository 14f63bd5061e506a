package whitelist

// Built-in exclusions. Renaming any of these either breaks the toolchain
// (keywords), the runtime contract (lifecycle selectors), or system
// framework linkage (vendor classes).

// objcKeywords and swiftKeywords cover both dialects' reserved words.
var objcKeywords = []string{
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if",
	"inline", "int", "long", "register", "return", "short", "signed",
	"sizeof", "static", "struct", "switch", "typedef", "union", "unsigned",
	"void", "volatile", "while",
	"id", "self", "super", "nil", "Nil", "YES", "NO", "BOOL", "SEL", "IMP",
	"instancetype", "nullable", "nonnull", "oneway", "in", "out", "inout",
	"bycopy", "byref", "atomic", "nonatomic", "strong", "weak", "copy",
	"assign", "retain", "readonly", "readwrite",
}

var swiftKeywords = []string{
	"associatedtype", "class", "deinit", "enum", "extension", "fileprivate",
	"func", "import", "init", "inout", "internal", "let", "open", "operator",
	"private", "protocol", "public", "rethrows", "static", "struct",
	"subscript", "typealias", "var", "where", "defer", "guard", "repeat",
	"as", "Any", "catch", "false", "is", "nil", "super", "self", "Self",
	"throw", "throws", "true", "try", "some", "any", "actor", "async",
	"await",
}

// lifecycleSelectors are runtime entry points the system invokes by name.
var lifecycleSelectors = []string{
	"init", "dealloc", "alloc", "new", "copy", "mutableCopy", "description",
	"load", "initialize", "awakeFromNib", "encodeWithCoder", "initWithCoder",
	"initWithFrame", "viewDidLoad", "viewWillAppear", "viewDidAppear",
	"viewWillDisappear", "viewDidDisappear", "viewWillLayoutSubviews",
	"viewDidLayoutSubviews", "layoutSubviews", "drawRect",
	"application", "applicationDidFinishLaunching",
	"applicationWillResignActive", "applicationDidEnterBackground",
	"applicationWillEnterForeground", "applicationDidBecomeActive",
	"applicationWillTerminate", "main", "body",
}

// systemClasses are framework types referenced from storyboards, xibs and
// the runtime; an exhaustive list is impossible, so the common roots are
// listed exactly and the vendor prefixes below catch the rest.
var systemClasses = []string{
	"NSObject", "NSString", "NSMutableString", "NSArray", "NSMutableArray",
	"NSDictionary", "NSMutableDictionary", "NSData", "NSMutableData",
	"NSNumber", "NSDate", "NSURL", "NSError", "NSNotification",
	"NSUserDefaults", "NSBundle", "NSCoder", "NSIndexPath", "NSTimer",
	"UIView", "UIViewController", "UIWindow", "UIApplication", "UIButton",
	"UILabel", "UIImage", "UIImageView", "UITableView", "UITableViewCell",
	"UICollectionView", "UICollectionViewCell", "UINavigationController",
	"UITabBarController", "UIScrollView", "UITextField", "UITextView",
	"UIColor", "UIFont", "UIScreen", "UIDevice",
	"CGRect", "CGPoint", "CGSize", "CGFloat", "CGAffineTransform",
	"CALayer", "CAAnimation", "CADisplayLink",
	"String", "Int", "Double", "Float", "Bool", "Array", "Dictionary",
	"Set", "Optional", "Result", "Error", "Data", "Date", "URL",
	"View", "Text", "Image", "Button", "List", "VStack", "HStack", "ZStack",
	"State", "Binding", "ObservableObject", "Published", "EnvironmentObject",
}

// builtinNames is the flattened exact-match set fed to every Registry.
var builtinNames = flattenBuiltins()

func flattenBuiltins() []string {
	groups := [][]string{objcKeywords, swiftKeywords, lifecycleSelectors, systemClasses}

	var out []string
	for _, group := range groups {
		out = append(out, group...)
	}

	return out
}

// VendorPrefixes are reserved-library identifier namespaces. The exact
// builtin names above cover the common system symbols; for everything else
// the transformer's identifier boundary rule keeps a project name such as
// "Data" from matching inside a vendor-namespaced "NSData".
var VendorPrefixes = []string{"NS", "UI", "CG", "CA", "CF", "SK", "MK", "AV", "WK"}
