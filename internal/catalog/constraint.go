package catalog

// ConstraintKind tags the tagged-union Constraint variant.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary_key"
	ConstraintForeignKey ConstraintKind = "foreign_key"
)

// Constraint is the tagged variant {primary-key(name?, columns),
// foreign-key(name?, columns, ref_table, ref_columns)} from spec.md §3.
type Constraint struct {
	Kind ConstraintKind
	Name string // optional; derived names are filled in by the executor

	Columns []string // PK or FK (referrer) columns

	// Foreign-key only:
	RefTable   string
	RefColumns []string
}

// ReferredConstraint is a back-link pushed onto a table when another table
// declares a foreign key pointing at it.
type ReferredConstraint struct {
	ReferringTable string
	Constraint     Constraint
}
