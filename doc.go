/*
Package concierge is a multi-agent dialog orchestrator for hospital patient support.

A router agent answers general questions and hands specialized requests to one of
four specialists (appointments, AI doctor, directions, parking) through transfer
tools. Specialists stay in control of the thread until they complete or escalate
the task, and every tool a specialist declares sensitive is held at a confirmation
gate until the user approves or rejects it.

# Concept

Each thread is a checkpointed Conversation: the message log, the dialog stack of
active specialists, the next node to run and any pending confirmation. The
Assistant serializes access to a thread, advances it until the model answers or
the gate suspends it, and persists it after every step, so a crashed process
picks the thread up where it stopped.

# Usage

	roster, err := hospital.NewRoster(tools.Services{Hospital: store, Maps: navigator, Model: model})
	if err != nil {
		log.Fatal(err)
	}

	bot, err := concierge.New(roster, model,
		concierge.WithCheckpointStore(redisStore),
		concierge.WithUserContextProvider(store),
	)
	if err != nil {
		log.Fatal(err)
	}

	turn, err := bot.Chat(ctx, "thread-1", "patient-1", "book me with Dr. Smith tomorrow at 10am")
	if err != nil {
		log.Fatal(err)
	}
	if p := turn.Pending(); p != nil {
		fmt.Println(p.Description)
		turn, err = bot.Resume(ctx, "thread-1", concierge.Decision{Approve: true, ConfirmationID: p.ID})
	}
	fmt.Println(turn.Text())
*/
package concierge
