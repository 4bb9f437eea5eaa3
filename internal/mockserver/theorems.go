package mockserver

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"unicode/utf8"

	"github.com/imathwy/tbps/internal/models"
)

var mockTheoremNames = []string{
	"Nat.add_comm",
	"Nat.mul_comm",
	"Nat.add_assoc",
	"Nat.mul_assoc",
	"list.length_append",
	"list.reverse_reverse",
	"Set.union_comm",
	"Set.inter_comm",
	"Function.comp_assoc",
	"Finset.card_union",
	"Real.add_comm",
	"Real.mul_comm",
	"Int.add_comm",
	"Int.mul_comm",
	"Vector.cons_head_tail",
	"Matrix.mul_assoc",
	"Group.mul_assoc",
	"Ring.add_comm",
	"Field.div_self",
	"Topology.continuous_comp",
	"Measure.measure_union",
	"Probability.prob_union",
	"Analysis.derivative_add",
	"LinearAlgebra.basis_span",
	"Category.comp_assoc",
	"Logic.and_comm",
	"Logic.or_comm",
	"Logic.not_not",
	"Set.subset_union_left",
	"Fintype.card_subset",
}

var mockStatements = []string{
	"∀ (a b : Nat), a + b = b + a",
	"∀ (a b : Nat), a * b = b * a",
	"∀ (a b c : Nat), (a + b) + c = a + (b + c)",
	"∀ (l₁ l₂ : list α), list.length (l₁ ++ l₂) = list.length l₁ + list.length l₂",
	"∀ (A B : Set α), A ∪ B = B ∪ A",
	"∀ (f g h : α → β → γ), (f ∘ g) ∘ h = f ∘ (g ∘ h)",
	"∀ (s t : Finset α), s.card + t.card = (s ∪ t).card + (s ∩ t).card",
	"∀ (x y : ℝ), x + y = y + x",
	"∀ (G : Type) [Group G] (a b c : G), (a * b) * c = a * (b * c)",
	"∀ (R : Type) [Ring R] (a b : R), a + b = b + a",
	"∀ (l : list α), list.reverse (list.reverse l) = l",
	"∀ (A B : Set α), A ∩ B = B ∩ A",
	"∀ (p q : Prop), p ∧ q ↔ q ∧ p",
	"∀ (p q : Prop), p ∨ q ↔ q ∨ p",
	"∀ (p : Prop), ¬¬p ↔ p",
}

// generateResults is deterministic for a given expression and k.
func generateResults(expression string, k int) []models.TheoremResult {
	h := fnv.New32a()
	h.Write([]byte(expression))
	r := rand.New(rand.NewSource(int64(h.Sum32() % 1000)))

	count := min(k, len(mockTheoremNames))
	names := r.Perm(len(mockTheoremNames))[:count]
	statements := r.Perm(len(mockStatements))[:min(len(mockStatements), count)]

	results := make([]models.TheoremResult, 0, count)
	for i, nameIdx := range names {
		score := 0.95 - float64(i)*0.08 + (r.Float64()*0.1 - 0.05)
		score = math.Max(0.1, math.Min(0.99, score))

		results = append(results, models.TheoremResult{
			Name:            mockTheoremNames[nameIdx],
			SimilarityScore: math.Round(score*10000) / 10000,
			Statement:       mockStatements[statements[i%len(statements)]],
			NodeCount:       10 + r.Intn(141),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	return results
}

func parsedPreview(expression string) string {
	if utf8.RuneCountInString(expression) <= 50 {
		return "Mock parsed: " + expression
	}
	return "Mock parsed: " + string([]rune(expression)[:50]) + "..."
}
