// Package core drives CSV files through the import pipeline.
//
// A run goes through the four pipeline stages. The first three happen while
// the caller waits:
//
//  1. [Service.InitImport] asks the handlers which one owns the kind.
//  2. [Service.ImportFields] lists the fields a CSV column can be matched to.
//  3. [Service.ValidateMapping] checks the mapping form (matched columns,
//     owner, list, tags).
//
// [Service.StartImport] repeats 1-3 and then streams the file through the
// process stage in the background, one row at a time. The reader is wrapped
// with [WrapForStreaming] so a BOM is dropped and broken UTF-8 is replaced
// before encoding/csv sees it. Progress goes to [Service.SubscribeProgress]
// listeners and the finished run is written to import history.
//
// At most IMPORT_MAX_CONCURRENT runs process at once; see [ImportLimiter].
//
// Technical errors are turned into coded user messages by [MapError]:
//
//   - AUTH001-AUTH002: permission and token errors
//   - IMP001-IMP007: pipeline errors (unsupported kind, mapping problems)
//   - DB001-DB007: database errors (duplicates, constraints, connections)
//   - VAL001-VAL009: cell and field file validation errors
//   - FILE001-FILE005: file errors (size, encoding, format)
//   - UPL001, UPL002, UPL004, UPL005: run errors (cancelled, busy, timeout)
package core
