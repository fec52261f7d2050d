// Package tabular reads and writes the row formats exchanged with EPA
// services.
//
// AQS CSV files quote every string field and leave numeric fields bare, and
// downstream loaders rely on that distinction. The CSV reader here therefore
// types each field by its quoting: quoted fields stay strings, bare fields
// become float64, empty bare fields become nil. The writer applies the same
// rule in reverse so a row survives a read/write cycle with its quoting
// intact. JSON arrays are decoded into records that keep the key order of the
// source objects.
package tabular
