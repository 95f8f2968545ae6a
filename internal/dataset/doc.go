// Package dataset loads and normalizes the four coupon data files.
//
// Loading is split in two steps. The Loader reads a delimited file into a
// RawTable, sniffing the separator and skipping rows whose field count does not
// match the header. The Build functions then turn a RawTable into a typed,
// immutable Table:
//
//   - phone numbers become a digits-only key shared by all tables
//   - dates are parsed day-first and times are zero-padded to HHMM
//   - weekday, hour and age bracket are derived when their inputs exist
//   - values that cannot be parsed become nil and are counted in Diagnostics
//
// LoadAll does both steps for every file and returns a Tables handle that is
// passed by reference to the analytics queries:
//
//	tables, err := dataset.LoadAll(ctx, dataset.DefaultSources("data"), dataset.Options{
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	for tx := range tables.Transactions.All() {
//	    ...
//	}
//
// Normalization is idempotent: building a table from its Canonical form gives
// back the same rows.
package dataset
