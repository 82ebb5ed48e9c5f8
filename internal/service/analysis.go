package service

import (
	"PassKeeper/internal/strength"
	"context"
	"fmt"
	"math"
)

// FlaggedCredential — запись, попавшая в отчёт безопасности.
type FlaggedCredential struct {
	ID       string   `json:"id"`
	Platform string   `json:"platform"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Score    int      `json:"score,omitempty"`
	Issues   []string `json:"issues,omitempty"`
}

// ReusedPassword — пароль, повторяющийся в нескольких записях.
type ReusedPassword struct {
	FlaggedCredential
	ReuseCount int      `json:"reuseCount"`
	UsedIn     []string `json:"usedIn"`
}

// SecurityReport — результат анализа всех паролей владельца.
type SecurityReport struct {
	Total       int                 `json:"total_passwords"`
	Compromised int                 `json:"compromised_count"`
	Weak        int                 `json:"weak_count"`
	Reused      int                 `json:"reused_count"`
	Strong      int                 `json:"strong_count"`
	HealthScore int                 `json:"health_score"`
	Leaked      []FlaggedCredential `json:"compromised_passwords"`
	WeakList    []FlaggedCredential `json:"weak_passwords"`
	ReusedList  []ReusedPassword    `json:"reused_passwords"`
}

// SecurityStats — сводка по сохранённым оценкам без расшифровки.
type SecurityStats struct {
	Total       int64   `json:"total_passwords"`
	WeakCount   int64   `json:"weak_password_count"`
	AvgStrength float64 `json:"avg_strength"`
}

// Analyze расшифровывает все записи владельца и ищет утёкшие, слабые и повторяющиеся пароли.
// Нерасшифровываемые записи в отчёт не попадают.
func (s *VaultService) Analyze(ctx context.Context, ownerID int64) (*SecurityReport, error) {
	list, err := s.creds.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	key, err := s.loadKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := s.openAll(key, list)

	rep := &SecurityReport{
		Total:      len(views),
		Leaked:     []FlaggedCredential{},
		WeakList:   []FlaggedCredential{},
		ReusedList: []ReusedPassword{},
	}
	byPassword := make(map[string][]CredentialView)
	var order []string

	for _, v := range views {
		flag := FlaggedCredential{ID: v.ID, Platform: v.AppName, Username: v.AccountUsername, Password: v.Password}
		if strength.IsCompromised(v.Password) {
			rep.Compromised++
			rep.Leaked = append(rep.Leaked, flag)
		}
		score := strength.Score(v.Password)
		switch {
		case strength.IsWeak(score):
			rep.Weak++
			flag.Score = score
			flag.Issues = strength.Issues(v.Password)
			rep.WeakList = append(rep.WeakList, flag)
		case strength.IsStrong(score):
			rep.Strong++
		}

		norm := strength.Normalize(v.Password)
		if _, ok := byPassword[norm]; !ok {
			order = append(order, norm)
		}
		byPassword[norm] = append(byPassword[norm], v)
	}

	for _, norm := range order {
		same := byPassword[norm]
		if len(same) < 2 {
			continue
		}
		rep.Reused++
		usedIn := make([]string, 0, len(same))
		for _, v := range same {
			usedIn = append(usedIn, fmt.Sprintf("%s (%s)", v.AppName, v.AccountUsername))
		}
		first := same[0]
		rep.ReusedList = append(rep.ReusedList, ReusedPassword{
			FlaggedCredential: FlaggedCredential{ID: first.ID, Platform: first.AppName, Username: first.AccountUsername, Password: first.Password},
			ReuseCount:        len(same),
			UsedIn:            usedIn,
		})
	}

	rep.HealthScore = strength.HealthScore(rep.Total, rep.Strong, rep.Compromised, rep.Weak, rep.Reused)
	return rep, nil
}

// Stats считает сводку по сохранённым оценкам. Слабыми здесь считаются оценки не выше порога.
func (s *VaultService) Stats(ctx context.Context, ownerID int64) (*SecurityStats, error) {
	st, err := s.creds.Stats(ctx, ownerID, strength.WeakBelow)
	if err != nil {
		return nil, err
	}
	return &SecurityStats{
		Total:       st.Total,
		WeakCount:   st.Weak,
		AvgStrength: math.Round(st.Avg*100) / 100,
	}, nil
}
