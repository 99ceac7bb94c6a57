// Package validate checks a merged mapping result against the template
// field specs and the manufacturer rule set.
package validate
