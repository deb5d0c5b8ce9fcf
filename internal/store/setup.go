package store

// TableName is the backing table for tasks.
const TableName = "todos"

// SetupSQL creates the todos table with demo-grade public access. Shown to
// the user when the table is missing; meant to be pasted into the Supabase
// SQL editor.
const SetupSQL = `create table todos (
  id uuid default gen_random_uuid() primary key,
  title text not null,
  is_completed boolean default false,
  priority text check (priority in ('low', 'medium', 'high')) default 'medium',
  created_at timestamp with time zone default now(),
  due_date timestamp with time zone
);

alter table todos enable row level security;

create policy "Public Access" on todos
  for all using (true) with check (true);`
