package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var seedMonitors = []fakeMonitor{
	{
		id: "062bc676ab9e9d9b:5a96b75728adb9d4:com:en:US", term: "email_aih_all",
		language: "en", region: "US", match: 2, delivery: 1,
		email: "alice@example.com", freq: 1, feedId: "7290377213681086747",
	},
	{
		id: "062bc676ab9e9d9b:be633f8e2d769ed1:com:en:US", term: "golang",
		language: "en", region: "US", match: 3, delivery: 1,
		email: "alice@example.com", freq: 2, feedId: "3165773263851675895",
	},
	{
		id: "062bc676ab9e9d9b:a92eace4d0488209:com:en:US", term: "rss_aih_best",
		language: "en", region: "US", match: 3, delivery: 2,
		freq: 1, feedId: "10457927733922767031",
	},
	{
		id: "062bc676ab9e9d9b:77aa1f0c9e5b6d21:com:en:GB", term: "golang",
		language: "en", region: "GB", match: 2, delivery: 2,
		freq: 1, feedId: "17387577876633356534",
	},
}

func setupRepository(t testing.TB, seed []fakeMonitor) (Repository, *fakeService) {
	f := newFakeService(t)
	for _, m := range seed {
		f.addMonitor(m)
	}
	session, rec := newTestSession(t, f, nil, "alice@example.com", "hunter2")
	err := session.Authenticate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return NewRepository(session, rec), f
}

func TestRepositoryRequiresState(t *testing.T) {
	ctx := context.Background()
	f := newFakeService(t)
	session, rec := newTestSession(t, f, nil, "alice@example.com", "hunter2")
	repo := NewRepository(session, rec)

	_, err := repo.List(ctx, "")
	require.True(t, errors.Is(err, ErrInvalidState))
	_, err = repo.Create(ctx, "Google", Options{Delivery: DeliveryRSS})
	require.True(t, errors.Is(err, ErrInvalidState))
	_, err = repo.Modify(ctx, "id", Options{})
	require.True(t, errors.Is(err, ErrInvalidState))
	_, err = repo.Delete(ctx, "id")
	require.True(t, errors.Is(err, ErrInvalidState))
	_, err = repo.DeleteByTerm(ctx, "Google")
	require.True(t, errors.Is(err, ErrInvalidState))

	require.Equal(t, 0, f.total())
}

func TestRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo, f := setupRepository(t, seedMonitors)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, 2, f.count("GET /alerts"))

	for _, term := range []string{"golang", "rss_aih_best", "Golang", "missing"} {
		filtered, err := repo.List(ctx, term)
		require.NoError(t, err)

		var expected []Monitor
		for _, m := range all {
			if m.Term == term {
				expected = append(expected, m)
			}
		}
		require.Equal(t, expected, filtered)
	}

	golang, err := repo.List(ctx, "golang")
	require.NoError(t, err)
	require.Len(t, golang, 2)
	require.Equal(t, "US", golang[0].Region)
	require.Equal(t, "GB", golang[1].Region)
}

func TestRepositoryListEmpty(t *testing.T) {
	repo, _ := setupRepository(t, nil)

	monitors, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, monitors)
}

func TestRepositoryListParseFailure(t *testing.T) {
	ctx := context.Background()
	repo, f := setupRepository(t, seedMonitors)

	// the state decodes but one of its records does not project
	f.set(func(f *fakeService) { f.statePage = badRecordPage })
	monitors, err := repo.List(ctx, "")
	require.Nil(t, monitors)
	require.True(t, errors.Is(err, ErrStateParseFailure), err)

	f.set(func(f *fakeService) { f.statePage = malformedStatePage })
	_, err = repo.List(ctx, "")
	require.True(t, errors.Is(err, ErrStateParseFailure), err)

	state, ok := repo.session.State()
	require.True(t, ok)
	require.Equal(t, fixtureToken, state.Token())
}

func TestRepositoryCreateRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		term string
		opts Options
	}{
		{
			name: "rss",
			term: "Google",
			opts: Options{Delivery: DeliveryRSS},
		},
		{
			name: "rss match all",
			term: "Google",
			opts: Options{Delivery: DeliveryRSS, MatchType: MatchAll},
		},
		{
			name: "mail default frequency",
			term: "golang generics",
			opts: Options{Delivery: DeliveryMail},
		},
		{
			name: "mail as it happens",
			term: "golang generics",
			opts: Options{Delivery: DeliveryMail, Frequency: AsItHappens, MatchType: MatchAll},
		},
		{
			name: "mail weekly other locale",
			term: "kubernetes",
			opts: Options{Delivery: DeliveryMail, Frequency: AtMostOnceAWeek, Language: "de", Region: "DE"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, f := setupRepository(t, nil)

			created, err := repo.Create(context.Background(), tc.term, tc.opts)
			require.NoError(t, err)
			require.Len(t, created, 1)
			require.Len(t, f.sentParams(ActionCreate), 1)

			opts := tc.opts.withDefaults()
			m := created[0]
			require.Equal(t, tc.term, m.Term)
			require.Equal(t, opts.Delivery, m.Delivery)
			require.Equal(t, opts.MatchType, m.MatchType)
			require.Equal(t, opts.Language, m.Language)
			require.Equal(t, opts.Region, m.Region)
			require.Equal(t, fakeUserId, m.UserID)
			if opts.Delivery == DeliveryMail {
				require.Equal(t, opts.Frequency, m.Frequency)
				require.Equal(t, "alice@example.com", m.EmailAddress)
				require.Empty(t, m.RSSLink)
			} else {
				require.Zero(t, m.Frequency)
				require.Contains(t, m.RSSLink, "https://google.com/alerts/feeds/"+fakeUserId+"/")
			}
		})
	}
}

func TestRepositoryCreateExact(t *testing.T) {
	ctx := context.Background()
	repo, f := setupRepository(t, nil)

	created, err := repo.Create(ctx, "Google", Options{Delivery: DeliveryRSS, Exact: true})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, `"Google"`, created[0].Term)

	params := f.sentParams(ActionCreate)
	require.Len(t, params, 1)
	require.Contains(t, params[0], `[null,"\"Google\"","com"`)

	bare, err := repo.List(ctx, "Google")
	require.NoError(t, err)
	require.Empty(t, bare)
	quoted, err := repo.List(ctx, `"Google"`)
	require.NoError(t, err)
	require.Len(t, quoted, 1)
}

func TestRepositoryCreateMissingDelivery(t *testing.T) {
	repo, f := setupRepository(t, nil)
	before := f.total()

	_, err := repo.Create(context.Background(), "Google", Options{})
	require.True(t, errors.Is(err, ErrInvalidConfig), err)
	require.Equal(t, before, f.total())
}

func TestRepositoryCreateActionError(t *testing.T) {
	repo, f := setupRepository(t, nil)
	f.set(func(f *fakeService) { f.actionStatus = 500 })

	_, err := repo.Create(context.Background(), "Google", Options{Delivery: DeliveryRSS})
	require.True(t, errors.Is(err, ErrAction), err)

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	require.Equal(t, ActionCreate, actionErr.Action)
	require.Equal(t, 500, actionErr.StatusCode)
	require.Contains(t, actionErr.Body, "internal error")
}

func TestRepositoryModify(t *testing.T) {
	ctx := context.Background()
	repo, f := setupRepository(t, seedMonitors)

	monitors, err := repo.Modify(ctx, seedMonitors[2].id, Options{MatchType: MatchAll})
	require.NoError(t, err)
	require.Len(t, monitors, 4)

	modified := monitors[2]
	require.Equal(t, seedMonitors[2].id, modified.ID)
	require.Equal(t, "rss_aih_best", modified.Term)
	require.Equal(t, MatchAll, modified.MatchType)
	require.Equal(t, DeliveryRSS, modified.Delivery)
	// the feed survives the modify
	require.Equal(t, "https://google.com/alerts/feeds/"+fakeUserId+"/10457927733922767031", modified.RSSLink)

	params := f.sentParams(ActionModify)
	require.Len(t, params, 1)
	require.Contains(t, params[0], `[null,"`+seedMonitors[2].id+`",[null,null,null,`)

	monitors, err = repo.Modify(ctx, seedMonitors[1].id, Options{Frequency: AtMostOnceAWeek})
	require.NoError(t, err)
	modified = monitors[1]
	require.Equal(t, AtMostOnceAWeek, modified.Frequency)
	require.Equal(t, MatchBest, modified.MatchType)
	require.Equal(t, DeliveryMail, modified.Delivery)
	require.Equal(t, "alice@example.com", modified.EmailAddress)
}

func TestRepositoryModifyDelivery(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t, seedMonitors)

	monitors, err := repo.Modify(ctx, seedMonitors[3].id, Options{Delivery: DeliveryMail, Frequency: AsItHappens})
	require.NoError(t, err)
	modified := monitors[3]
	require.Equal(t, DeliveryMail, modified.Delivery)
	require.Equal(t, AsItHappens, modified.Frequency)
	require.Equal(t, "alice@example.com", modified.EmailAddress)
	require.Equal(t, "GB", modified.Region)
}

func TestRepositoryModifyNotFound(t *testing.T) {
	repo, f := setupRepository(t, seedMonitors)

	_, err := repo.Modify(context.Background(), "062bc676ab9e9d9b:0000000000000000:com:en:US", Options{MatchType: MatchAll})
	require.True(t, errors.Is(err, ErrMonitorNotFound), err)
	require.Equal(t, 0, f.count("POST /alerts/modify"))
}

func TestRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo, f := setupRepository(t, seedMonitors)

	ok, err := repo.Delete(ctx, seedMonitors[0].id)
	require.NoError(t, err)
	require.True(t, ok)

	params := f.sentParams(ActionDelete)
	require.Equal(t, []string{`[null,"` + seedMonitors[0].id + `"]`}, params)

	monitors, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, monitors, 3)
	for _, m := range monitors {
		require.NotEqual(t, seedMonitors[0].id, m.ID)
	}
}

func TestRepositoryDeleteNotFound(t *testing.T) {
	repo, f := setupRepository(t, seedMonitors)

	ok, err := repo.Delete(context.Background(), "062bc676ab9e9d9b:0000000000000000:com:en:US")
	require.False(t, ok)
	require.True(t, errors.Is(err, ErrMonitorNotFound), err)

	var notFound *MonitorNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "062bc676ab9e9d9b:0000000000000000:com:en:US", notFound.ID)
	require.Equal(t, 0, f.count("POST /alerts/delete"))
}

func TestRepositoryDeleteByTerm(t *testing.T) {
	ctx := context.Background()
	repo, f := setupRepository(t, seedMonitors)

	ok, err := repo.DeleteByTerm(ctx, "golang")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{`[null,"` + seedMonitors[1].id + `"]`}, f.sentParams(ActionDelete))

	remaining, err := repo.List(ctx, "golang")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, seedMonitors[3].id, remaining[0].ID)
}

func TestRepositoryDeleteByTermSuggestion(t *testing.T) {
	repo, f := setupRepository(t, seedMonitors)

	_, err := repo.DeleteByTerm(context.Background(), "golnag")
	require.True(t, errors.Is(err, ErrMonitorNotFound), err)

	var notFound *MonitorNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "golang", notFound.Suggestion)
	require.Contains(t, err.Error(), `did you mean "golang"?`)
	require.Equal(t, 0, f.count("POST /alerts/delete"))

	_, err = repo.DeleteByTerm(context.Background(), "zzzzzz")
	require.True(t, errors.As(err, &notFound))
	require.Empty(t, notFound.Suggestion)
}
