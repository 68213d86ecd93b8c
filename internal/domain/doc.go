// Package domain models TEOTIL3 point-source (wastewater) discharge data and the
// scenario rules applied to it.
//
// # Data Source
//
// Raw point-source data is delivered once per year as Excel workbooks under the
// TEOTIL3 base directory:
//
//	point_data/{year}/large_wastewater_{year}_raw.xlsx
//	point_data/{year}/industry_{year}_raw.xlsx
//	point_data/{year}/metals_{year}_raw.xlsx
//
// Each wastewater row is one treatment site ("anlegg"), identified by anlegg_nr.
//
// # Column Conventions
//
// Loads are reported per parameter as inflow and outflow in tonnes:
//
//	{par}_in_tonnes, {par}_out_tonnes   for par in totn, totp, bof5, kof, ss
//
// Empty cells are kept as NaN. They are never treated as zero, because a
// missing inflow means the treatment efficiency is unknown, not 100%.
//
// Capacity is given in person equivalents:
//
//	current_capacity  the operating load; empty for some sites
//	design_capacity   the dimensioned load, used when current_capacity is empty
//
// # Treatment Efficiency
//
// The efficiency ("renseeffekt") of a site for a parameter is
//
//	100 * (in - out) / in
//
// Upgrade rules only ever raise it. A target below the observed efficiency is
// a no-op for that site; see [UpgradeByCapacity].
//
// # Capacity Bands
//
// Rules keyed by capacity use "min-max" strings. Both ends are parsed as
// numbers and truncated to integers, and a site matches when
// min <= current_capacity < max. See [ParseCapacityBand].
//
// # Rule Order
//
// A scenario is applied as overflow, then upgrade_by_capacity, then
// upgrade_by_id. Later rules see the outflows written by earlier ones.
package domain
