package ml

import (
	"encoding/json"
	"testing"
)

func probability(v float64) *float64 {
	return &v
}

func sampleTree(withProba bool) []TreeNode {
	nodes := []TreeNode{
		{FeatureIdx: 1, Threshold: 6.5, LeftChild: 1, RightChild: 2},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
	}
	if withProba {
		nodes[1].Probability = probability(0.1)
		nodes[2].Probability = probability(0.85)
	}
	return nodes
}

func TestDecisionTreePredict(t *testing.T) {
	tree, err := NewDecisionTree(sampleTree(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, err := tree.Predict([]float64{0, 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
	p, err := tree.PredictProba([]float64{0, 7.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0.85 {
		t.Fatalf("expected 0.85, got %v", p)
	}
	if !tree.HasProbabilities() {
		t.Fatal("expected probabilities")
	}
	if tree.Width() != 2 {
		t.Fatalf("expected width 2, got %d", tree.Width())
	}
}

func TestDecisionTreeWithoutProbabilities(t *testing.T) {
	tree, err := NewDecisionTree(sampleTree(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.HasProbabilities() {
		t.Fatal("expected no probabilities")
	}
	if _, err := tree.PredictProba([]float64{0, 7}); err == nil {
		t.Fatal("expected error without leaf probability")
	}
}

func TestDecisionTreeRejectsMalformed(t *testing.T) {
	nodes := sampleTree(true)
	nodes[0].LeftChild = 0
	if _, err := NewDecisionTree(nodes); err == nil {
		t.Fatal("expected error for self-referencing node")
	}
	if _, err := NewDecisionTree(nil); err == nil {
		t.Fatal("expected error for empty tree")
	}
	var tree DecisionTree
	if err := json.Unmarshal([]byte(`[{"is_leaf":true,"probability":1.5}]`), &tree); err == nil {
		t.Fatal("expected error for probability > 1")
	}
}

func TestDecisionTreeFeatureOutOfRange(t *testing.T) {
	tree, err := NewDecisionTree(sampleTree(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tree.Predict([]float64{1}); err == nil {
		t.Fatal("expected feature index error")
	}
}
