// Package resultstore persists stage outputs by run, in memory or in a Badger database.
package resultstore
