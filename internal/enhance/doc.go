// Package enhance asks an external language model for candidate values of
// target fields the source record does not obviously carry.
//
// The result is one more low-priority input to the field matcher. It never
// overrides an exact or semantic match.
package enhance
