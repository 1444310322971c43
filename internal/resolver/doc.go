// Package resolver turns an import specifier written in a source file into
// the absolute path of the file it refers to.
//
// # Resolution order
//
// A Query is resolved deterministically and the first match wins:
//
//  1. Remote specifiers (http and https URLs) are downloaded into the
//     project's vendor directory by a Fetcher. Other URL schemes are
//     Unsupported.
//  2. Path-like specifiers ("/", "./", "../") are resolved against the
//     origin's directory. Bare specifiers go through module resolution,
//     falling back to path resolution for entry queries.
//  3. Path resolution tries the exact file, then variants in fixed order:
//     platform suffix (and the platform's aliases), implicit extension and
//     resolution scale ("@2x"). Directories are resolved through their
//     manifest's "exports" and "<platform>:main"/"main" fields, then
//     through an implicit "index" file.
//  4. Module resolution tries mocks, virtual modules, the project's
//     declared packages and finally each ancestor's node_modules folder.
//
// Failures carry no advice of their own. ResolveAssert runs a separate
// suggestion pass that never influences the decision.
package resolver
