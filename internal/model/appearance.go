package model

// Appearance 外貌特征描述：性别 + 5项可比对属性
// 性别不参与计分，只作硬性过滤
type Appearance struct {
	Sex          string `bson:"sex" json:"sex"`
	Hair         string `bson:"hair,omitempty" json:"hair,omitempty"`
	Glasses      string `bson:"glasses,omitempty" json:"glasses,omitempty"`
	ClothesType  string `bson:"clothesType,omitempty" json:"clothesType,omitempty"`
	ClothesColor string `bson:"clothesColor,omitempty" json:"clothesColor,omitempty"`
	ClothesStyle string `bson:"clothesStyle,omitempty" json:"clothesStyle,omitempty"`
}

// MatchThreshold 5项属性中至少命中4项才算匹配
const MatchThreshold = 4

// Score 统计5项属性中与guess完全相等的个数，性别不一致直接记0分
func (a Appearance) Score(guess Appearance) int {
	if a.Sex != guess.Sex {
		return 0
	}
	score := 0
	if a.Hair == guess.Hair {
		score++
	}
	if a.Glasses == guess.Glasses {
		score++
	}
	if a.ClothesType == guess.ClothesType {
		score++
	}
	if a.ClothesColor == guess.ClothesColor {
		score++
	}
	if a.ClothesStyle == guess.ClothesStyle {
		score++
	}
	return score
}

// Matches 得分达到阈值即认为描述吻合
func (a Appearance) Matches(guess Appearance) bool {
	return a.Score(guess) >= MatchThreshold
}
