// Package utils holds small helpers shared by the other packages: quoting of
// ClickHouse identifiers and taking the address of a literal.
//
//	utils.BacktickIdentifier("events") // `events`
//	utils.Ptr("v1.00/02.sql")          // *string
package utils
