package weather

// Grade is the nine-level quality-control ranking the provider attaches
// to an individual observation reading. The order, highest to lowest
// trustworthiness, is V > G > S > C > Z > Q > T > B > X.
type Grade string

const (
	GradeVerified     Grade = "V"
	GradeSubjGood     Grade = "G"
	GradeScreened     Grade = "S"
	GradeCoarsePass   Grade = "C"
	GradePreliminary  Grade = "Z"
	GradeQuestioned   Grade = "Q"
	GradeVirtualTemp  Grade = "T"
	GradeSubjBad      Grade = "B"
	GradeRejected     Grade = "X"
)

// rank maps each grade to its position in the total order, 9 (best) down
// to 1 (worst). Kept as a plain map rather than iota-on-declaration-order
// so the ranking survives reordering of the const block above.
var rank = map[Grade]int{
	GradeVerified:    9,
	GradeSubjGood:    8,
	GradeScreened:    7,
	GradeCoarsePass:  6,
	GradePreliminary: 5,
	GradeQuestioned:  4,
	GradeVirtualTemp: 3,
	GradeSubjBad:     2,
	GradeRejected:    1,
}

// Rank returns the grade's position in the total order; higher is more
// trustworthy. An unrecognized grade ranks below every known grade.
func (g Grade) Rank() int {
	if r, ok := rank[g]; ok {
		return r
	}
	return 0
}

// Compare returns a negative number if g is lower-ranked than other, zero
// if equal, and positive if g outranks other.
func (g Grade) Compare(other Grade) int {
	return g.Rank() - other.Rank()
}
