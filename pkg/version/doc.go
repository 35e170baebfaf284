// Package version models the local version directories of a workspace.
//
// A version directory is named v<major>.<minor><label>, for example v0.00,
// v1.05 or v2.10-hotfix. The minor component is always two digits and the
// whole name is limited to 190 characters.
//
// Versions are ordered numerically by major then minor, so v10.00 sorts after
// v9.99. The label only breaks ties so that sorting is deterministic.
//
// Example usage:
//
//	v, err := version.Parse("v1.05")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	next, err := version.IncrementMinor([]version.Local{v}, "")
//	fmt.Println(next) // v1.06
package version
