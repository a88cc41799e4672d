package model

import "testing"

func TestAppearanceScore(t *testing.T) {
	base := Appearance{
		Sex:          "女",
		Hair:         "短发",
		Glasses:      "无",
		ClothesType:  "连衣裙",
		ClothesColor: "白",
		ClothesStyle: "休闲",
	}

	tests := []struct {
		name      string
		guess     Appearance
		wantScore int
		wantMatch bool
	}{
		{
			name:      "完全一致",
			guess:     base,
			wantScore: 5,
			wantMatch: true,
		},
		{
			name: "一项不同仍然匹配",
			guess: Appearance{
				Sex: "女", Hair: "长发", Glasses: "无",
				ClothesType: "连衣裙", ClothesColor: "白", ClothesStyle: "休闲",
			},
			wantScore: 4,
			wantMatch: true,
		},
		{
			name: "两项不同不匹配",
			guess: Appearance{
				Sex: "女", Hair: "长发", Glasses: "有",
				ClothesType: "连衣裙", ClothesColor: "白", ClothesStyle: "休闲",
			},
			wantScore: 3,
			wantMatch: false,
		},
		{
			name: "性别不一致直接0分",
			guess: Appearance{
				Sex: "男", Hair: "短发", Glasses: "无",
				ClothesType: "连衣裙", ClothesColor: "白", ClothesStyle: "休闲",
			},
			wantScore: 0,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Score(tt.guess); got != tt.wantScore {
				t.Errorf("Score() = %d, want %d", got, tt.wantScore)
			}
			if got := base.Matches(tt.guess); got != tt.wantMatch {
				t.Errorf("Matches() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}
