package namegen

// Vocabulary for the dictionary strategy. Combinations of these read like
// hand-written identifiers instead of random noise.

var verbs = []string{
	"handle", "process", "execute", "run", "start", "stop", "init", "setup",
	"load", "save", "update", "create", "remove", "add", "set", "get",
	"fetch", "send", "receive", "parse", "format", "convert", "merge",
	"split", "apply", "resolve", "bind", "attach", "detach", "sync",
}

var nouns = []string{
	"core", "util", "base", "impl", "service", "client", "server", "config",
	"store", "cache", "queue", "pool", "buffer", "stream", "record", "entry",
	"group", "batch", "token", "frame", "layer", "view", "model", "state",
	"context", "session", "bridge", "proxy", "worker", "task",
}

var qualifiers = []string{
	"ex", "alt", "aux", "sub", "pre", "post", "next", "prev", "tmp", "raw",
}
