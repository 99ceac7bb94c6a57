// Package fallback derives values for target fields the matcher could not
// resolve.
//
// Tiers are tried in order until one produces a value:
//  1. derived composition from sibling values (confidence 0.7)
//  2. the manufacturer static default table (confidence 0.5)
//  3. conditional defaults inferred from sibling values (confidence 0.6)
//
// A field no tier can fill is unmappable: it receives a heuristic default
// and a list of upstream sources worth checking by hand.
package fallback
