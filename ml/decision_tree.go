package ml

import (
    "encoding/json"
    "errors"
    "fmt"
)

type DecisionTree struct {
    nodes []TreeNode
}

type TreeNode struct {
    FeatureIdx  int      `json:"feature_idx"`
    Threshold   float64  `json:"threshold"`
    LeftChild   int      `json:"left_child"`
    RightChild  int      `json:"right_child"`
    ClassLabel  int      `json:"class_label"`
    IsLeaf      bool     `json:"is_leaf"`
    Probability *float64 `json:"probability,omitempty"`
}

func NewDecisionTree(nodes []TreeNode) (*DecisionTree, error) {
    dt := &DecisionTree{nodes: append([]TreeNode(nil), nodes...)}
    if err := dt.check(); err != nil {
        return nil, err
    }
    return dt, nil
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
    leaf, err := dt.leaf(features)
    if err != nil {
        return 0, err
    }
    return leaf.ClassLabel, nil
}

// PredictProba returns the positive-class probability stored on the reached leaf.
func (dt *DecisionTree) PredictProba(features []float64) (float64, error) {
    leaf, err := dt.leaf(features)
    if err != nil {
        return 0, err
    }
    if leaf.Probability == nil {
        return 0, errors.New("leaf has no probability")
    }
    return *leaf.Probability, nil
}

// HasProbabilities reports whether every leaf carries a probability.
func (dt *DecisionTree) HasProbabilities() bool {
    for _, node := range dt.nodes {
        if node.IsLeaf && node.Probability == nil {
            return false
        }
    }
    return len(dt.nodes) > 0
}

// Width is the number of input features the tree reads.
func (dt *DecisionTree) Width() int {
    max := -1
    for _, node := range dt.nodes {
        if !node.IsLeaf && node.FeatureIdx > max {
            max = node.FeatureIdx
        }
    }
    return max + 1
}

func (dt *DecisionTree) MarshalJSON() ([]byte, error) {
    return json.Marshal(dt.nodes)
}

func (dt *DecisionTree) UnmarshalJSON(payload []byte) error {
    var nodes []TreeNode
    if err := json.Unmarshal(payload, &nodes); err != nil {
        return err
    }
    dt.nodes = nodes
    return dt.check()
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
    if len(dt.nodes) == 0 {
        return TreeNode{}, errors.New("model not loaded")
    }
    idx := 0
    // a well-formed tree reaches a leaf in fewer steps than it has nodes
    for steps := 0; steps <= len(dt.nodes); steps++ {
        node := dt.nodes[idx]
        if node.IsLeaf {
            return node, nil
        }
        if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
            return TreeNode{}, errors.New("feature index out of range")
        }
        if features[node.FeatureIdx] <= node.Threshold {
            idx = node.LeftChild
        } else {
            idx = node.RightChild
        }
        if idx < 0 || idx >= len(dt.nodes) {
            return TreeNode{}, errors.New("invalid tree state")
        }
    }
    return TreeNode{}, errors.New("tree contains a cycle")
}

func (dt *DecisionTree) check() error {
    if len(dt.nodes) == 0 {
        return errors.New("decision tree has no nodes")
    }
    for i, node := range dt.nodes {
        if node.IsLeaf {
            if node.Probability != nil && (*node.Probability < 0 || *node.Probability > 1) {
                return fmt.Errorf("node %d: probability %v outside [0,1]", i, *node.Probability)
            }
            continue
        }
        if node.FeatureIdx < 0 {
            return fmt.Errorf("node %d: negative feature index", i)
        }
        if node.LeftChild <= i || node.LeftChild >= len(dt.nodes) ||
            node.RightChild <= i || node.RightChild >= len(dt.nodes) {
            return fmt.Errorf("node %d: child index out of range", i)
        }
    }
    return nil
}
