// Package normalize canonicalizes reference targets. Rules are applied in a
// fixed order (capitalize, then singularize) and never look at the alias.
package normalize
