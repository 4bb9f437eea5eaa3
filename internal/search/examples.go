package search

// Example is a ready-made expression users can start a search from.
type Example struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

var examples = []Example{
	{Name: "Commutative Addition (Nat)", Expression: "∀ (a b : Nat), a + b = b + a"},
	{Name: "Commutative Multiplication (Nat)", Expression: "∀ (a b : Nat), a * b = b * a"},
	{Name: "Associative Addition (Nat)", Expression: "∀ (a b c : Nat), (a + b) + c = a + (b + c)"},
	{Name: "List Length Append", Expression: "∀ (α : Type) (l₁ l₂ : List α), List.length (l₁ ++ l₂) = List.length l₁ + List.length l₂"},
	{Name: "Set Union Commutativity", Expression: "∀ (α : Type) (A B : Set α), A ∪ B = B ∪ A"},
	{Name: "Function Composition Associativity", Expression: "∀ (f g h : α → β → γ), (f ∘ g) ∘ h = f ∘ (g ∘ h)"},
	{Name: "Real Number Addition Commutativity", Expression: "∀ (x y : ℝ), x + y = y + x"},
	{Name: "Group Multiplication Associativity", Expression: "∀ (G : Type) [Group G] (a b c : G), (a * b) * c = a * (b * c)"},
	{Name: "List Reverse Involutive", Expression: "∀ (α : Type) (l : List α), List.reverse (List.reverse l) = l"},
	{Name: "Set Intersection Commutativity", Expression: "∀ (α : Type) (A B : Set α), A ∩ B = B ∩ A"},
}

// Examples returns a copy of the built-in example expressions.
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}
