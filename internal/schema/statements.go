package schema

// tables are created in dependency order: any table holding a foreign key
// comes after the table it references.
var tables = []string{
	`CREATE TABLE "character" (
		id serial NOT NULL,
		user_id bigint NOT NULL,
		name text NOT NULL,
		level smallint,
		world text,
		vocation text,
		guild text,
		modified timestamp with time zone DEFAULT now(),
		created timestamp with time zone DEFAULT now(),
		PRIMARY KEY (id),
		UNIQUE(name)
	)`,
	`CREATE TABLE character_death (
		id serial NOT NULL,
		character_id integer NOT NULL,
		level smallint,
		date timestamp with time zone,
		PRIMARY KEY (id),
		FOREIGN KEY (character_id) REFERENCES "character" (id),
		UNIQUE(character_id, date)
	)`,
	`CREATE TABLE character_death_killer (
		death_id integer NOT NULL,
		position smallint NOT NULL DEFAULT 0,
		name text NOT NULL,
		player boolean,
		FOREIGN KEY (death_id) REFERENCES character_death (id)
	)`,
	`CREATE TABLE character_levelup (
		id serial NOT NULL,
		character_id integer NOT NULL,
		level smallint,
		date timestamp with time zone DEFAULT now(),
		PRIMARY KEY (id),
		FOREIGN KEY (character_id) REFERENCES "character" (id)
	)`,
	`CREATE TABLE event (
		id serial NOT NULL,
		user_id bigint NOT NULL,
		server_id bigint NOT NULL,
		name text NOT NULL,
		description text,
		start timestamp with time zone NOT NULL,
		active boolean NOT NULL DEFAULT true,
		reminder smallint NOT NULL DEFAULT 0,
		joinable boolean NOT NULL DEFAULT true,
		slots smallint NOT NULL DEFAULT 0,
		modified timestamp with time zone NOT NULL DEFAULT now(),
		created timestamp with time zone NOT NULL DEFAULT now(),
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE event_participant (
		event_id integer NOT NULL,
		character_id integer NOT NULL,
		FOREIGN KEY (event_id) REFERENCES event (id),
		FOREIGN KEY (character_id) REFERENCES "character" (id),
		UNIQUE(event_id, character_id)
	)`,
	`CREATE TABLE event_subscriber (
		event_id integer NOT NULL,
		user_id bigint NOT NULL,
		FOREIGN KEY (event_id) REFERENCES event (id),
		UNIQUE(event_id, user_id)
	)`,
	`CREATE TABLE highscores (
		world text NOT NULL,
		category text NOT NULL,
		last_scan timestamp with time zone DEFAULT now(),
		PRIMARY KEY (world, category)
	)`,
	`CREATE TABLE highscores_entry (
		rank text,
		category text,
		world text,
		name text,
		vocation text,
		value bigint
	)`,
	`CREATE TABLE role_auto (
		server_id bigint NOT NULL,
		role_id bigint NOT NULL,
		rule text NOT NULL,
		PRIMARY KEY (server_id, role_id, rule)
	)`,
	`CREATE TABLE role_joinable (
		server_id bigint NOT NULL,
		role_id bigint NOT NULL,
		PRIMARY KEY (server_id, role_id)
	)`,
	`CREATE TABLE server_property (
		server_id bigint NOT NULL,
		key text NOT NULL,
		value jsonb,
		PRIMARY KEY (server_id, key)
	)`,
	`CREATE TABLE server_prefixes (
		server_id bigint NOT NULL,
		prefixes text[] NOT NULL,
		PRIMARY KEY (server_id)
	)`,
	`CREATE TABLE global_property (
		key text NOT NULL,
		value jsonb,
		PRIMARY KEY (key)
	)`,
	`CREATE TABLE watchlist_entry (
		id serial NOT NULL,
		name text NOT NULL,
		server_id bigint NOT NULL,
		is_guild bool DEFAULT FALSE,
		reason text,
		user_id bigint,
		created timestamp with time zone DEFAULT now(),
		PRIMARY KEY (id),
		UNIQUE(name, server_id, is_guild)
	)`,
	`CREATE TABLE command (
		server_id bigint,
		channel_id bigint NOT NULL,
		user_id bigint NOT NULL,
		date timestamp with time zone NOT NULL DEFAULT now(),
		prefix text NOT NULL,
		command text NOT NULL
	)`,
}

var functions = []string{
	`CREATE FUNCTION update_modified_column() RETURNS trigger
		LANGUAGE plpgsql
		AS $$
	BEGIN
		NEW.modified = now();
		RETURN NEW;
	END;
	$$`,
}

var triggers = []string{
	`CREATE TRIGGER update_character_modified
	BEFORE UPDATE ON "character"
	FOR EACH ROW EXECUTE PROCEDURE update_modified_column()`,
	`CREATE TRIGGER update_event_modified
	BEFORE UPDATE ON event
	FOR EACH ROW EXECUTE PROCEDURE update_modified_column()`,
}
