package roundservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/events"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDeadline turns an admin-supplied date into a timestamp. It accepts
// RFC 3339, a bare date, or English phrases like "next friday" relative to
// base.
func ParseDeadline(phrase string, base time.Time) (time.Time, error) {
	phrase = strings.TrimSpace(phrase)
	if t, err := time.Parse(time.RFC3339, phrase); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", phrase); err == nil {
		return t, nil
	}
	r, err := dateParser.Parse(phrase, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", phrase)
	}
	return r.Time, nil
}

// Extend moves the current stage's advisory deadline. The phrase goes through
// ParseDeadline; past dates are allowed, shortening a stage is a legitimate
// admin move.
func (s *Service) Extend(ctx context.Context, num int64, phrase string) (results.OperationResult[rounddb.Round, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ExtendRound", strconv.FormatInt(num, 10),
		func(ctx context.Context) (roundResult, error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, num)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return fail(shared.NewNotFoundError("round %d does not exist", num)), nil
				}
				return roundResult{}, err
			}

			now := time.Now()
			newDate, err := ParseDeadline(phrase, now)
			if err != nil {
				return fail(shared.NewValidationError("cannot understand %q as a date", phrase)), nil
			}

			var field string
			switch round.Stage {
			case rounddb.StageWriting:
				round.WritingDeadline = &newDate
				field = "writing"
			case rounddb.StageGuessing:
				round.GuessingDeadline = &newDate
				field = "guessing"
			default:
				return fail(shared.NewConflictError("round %d has no running stage to extend", num)), nil
			}

			if err := s.roundRepo.Update(ctx, nil, round); err != nil {
				return roundResult{}, err
			}

			s.publish(ctx, events.RoundExtended, events.RoundExtendedPayload{
				RoundNum: num, Field: field, NewDate: newDate,
			})
			return succeed(*round), nil
		})
}
